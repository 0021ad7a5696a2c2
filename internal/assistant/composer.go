package assistant

import "strings"

// ComposeSystemPrompt assembles the model's system instruction from its three
// layers in fixed order: the safety preamble, the persona or caller-supplied
// instruction, and the optional library context. Empty layers append nothing;
// layers are joined by blank lines.
func ComposeSystemPrompt(instruction string, libraryContext string) string {
	layers := []string{safetyPreamble}
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		layers = append(layers, instruction)
	}
	if libraryContext = strings.TrimSpace(libraryContext); libraryContext != "" {
		layers = append(layers, libraryContext)
	}
	return strings.Join(layers, "\n\n")
}
