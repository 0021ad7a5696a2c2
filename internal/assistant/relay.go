package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mangadome/internal/gemini"
	"mangadome/internal/logging"
)

// errorMarker prefixes the in-band failure text appended when a stream dies
// after output has already been committed. Consumers must treat a trailing
// block starting with this marker as a failure even under a 200 status.
const errorMarker = "[Error]: "

// ErrEmptyMessage rejects a request with no message text.
var ErrEmptyMessage = errors.New("message is required")

// Generator is the streaming LLM dependency.
type Generator interface {
	StreamGenerate(ctx context.Context, req *gemini.Request) (<-chan string, <-chan error)
}

// ContextSource supplies the optional user-context prompt layer.
type ContextSource interface {
	LibraryContext(ctx context.Context, userID string) string
}

// Request is one validated assistant turn.
type Request struct {
	Message           string
	UserID            string
	History           []gemini.Content
	SystemInstruction string
	Persona           string
}

// Outcome reports how a stream ended. Delivered counts forwarded chunks;
// Interrupted is set when the in-band error marker was emitted.
type Outcome struct {
	Delivered   int
	Interrupted bool
}

// Relay drives one assistant turn: compose the system prompt, open the
// provider stream, and forward chunks to the caller as they arrive.
type Relay struct {
	llm             Generator
	contexts        ContextSource
	maxOutputTokens int
	historyLimit    int
}

// NewRelay builds a relay. contexts may be nil to disable personalization;
// historyLimit caps how many prior turns are forwarded (0 for no cap).
func NewRelay(llm Generator, contexts ContextSource, maxOutputTokens, historyLimit int) *Relay {
	return &Relay{
		llm:             llm,
		contexts:        contexts,
		maxOutputTokens: maxOutputTokens,
		historyLimit:    historyLimit,
	}
}

// systemPrompt builds the layered instruction for req. A caller-supplied
// instruction replaces the persona layer; the safety preamble always leads.
func (r *Relay) systemPrompt(ctx context.Context, req Request) string {
	instruction := strings.TrimSpace(req.SystemInstruction)
	if instruction == "" {
		instruction = PersonaByID(req.Persona).Prompt()
	}
	libraryContext := ""
	if r.contexts != nil && req.UserID != "" {
		libraryContext = r.contexts.LibraryContext(ctx, req.UserID)
	}
	return ComposeSystemPrompt(instruction, libraryContext)
}

// Stream runs the turn, calling emit for each text chunk in provider order.
// Failures before any output reaches emit are returned as errors so the
// caller can still choose a status code. Once output has flowed, a provider
// failure is reported in-band via the error marker and Stream returns a nil
// error with Outcome.Interrupted set. An emit failure means the consumer is
// gone; the provider stream is cancelled and the emit error returned.
func (r *Relay) Stream(ctx context.Context, req Request, emit func(string) error) (*Outcome, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	history := req.History
	if r.historyLimit > 0 && len(history) > r.historyLimit {
		history = history[len(history)-r.historyLimit:]
	}

	contents := make([]gemini.Content, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, gemini.Content{
		Role:  "user",
		Parts: []gemini.Part{{Text: req.Message}},
	})

	system := r.systemPrompt(ctx, req)
	genReq := gemini.NewRequest(system, contents, r.maxOutputTokens)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, errs := r.llm.StreamGenerate(ctx, genReq)

	outcome := &Outcome{}
	for chunk := range chunks {
		if err := emit(chunk); err != nil {
			cancel()
			for range chunks {
				// drain so the producer can exit
			}
			<-errs
			logging.AssistantDebug("consumer disconnected after %d chunks", outcome.Delivered)
			return outcome, err
		}
		outcome.Delivered++
	}

	if err := <-errs; err != nil {
		if outcome.Delivered == 0 {
			return nil, err
		}
		// Output is already committed; the only remaining channel for the
		// failure is the stream itself.
		logging.AssistantError("stream interrupted after %d chunks: %v", outcome.Delivered, err)
		outcome.Interrupted = true
		marker := fmt.Sprintf("\n\n%sThe response was interrupted. Please try again.", errorMarker)
		if emitErr := emit(marker); emitErr != nil {
			return outcome, emitErr
		}
	}
	return outcome, nil
}
