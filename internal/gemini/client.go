package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mangadome/internal/logging"
)

// ErrNoAPIKey is returned when the client was built without a key. The
// message is surfaced verbatim to API callers.
var ErrNoAPIKey = errors.New("API key not configured")

// Client streams completions from the Generative Language API over SSE.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	maxRetries int

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries int // retries before the stream is committed
}

// New builds a streaming client. An empty API key is allowed; requests will
// fail with ErrNoAPIKey.
func New(opts Options) *Client {
	c := &Client{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		maxRetries: opts.MaxRetries,
	}
	if c.model == "" {
		c.model = "gemini-2.0-flash"
	}
	if c.baseURL == "" {
		c.baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.httpClient == nil {
		// No client timeout: streams can legitimately run for minutes.
		// Cancellation comes from the request context.
		c.httpClient = &http.Client{}
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
	return c
}

// NewRequest assembles a generation request with search grounding enabled.
func NewRequest(system string, contents []Content, maxOutputTokens int) *Request {
	req := &Request{
		Contents: contents,
		Tools:    []Tool{{GoogleSearch: &GoogleSearch{}}},
	}
	if system != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}
	if maxOutputTokens > 0 {
		req.GenerationConfig = &GenerationConfig{MaxOutputTokens: maxOutputTokens}
	}
	return req
}

// StreamGenerate starts a streaming completion. Text deltas arrive on the
// first channel; at most one error arrives on the second. Both channels are
// closed when the stream ends. Connection failures before any delta is
// delivered are retried with exponential backoff; once deltas flow, failures
// are reported in-band on the error channel instead.
func (c *Client) StreamGenerate(ctx context.Context, req *Request) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		if c.apiKey == "" {
			errs <- ErrNoAPIKey
			return
		}

		body, err := json.Marshal(req)
		if err != nil {
			errs <- fmt.Errorf("gemini: encode request: %w", err)
			return
		}

		var lastErr error
		for attempt := 0; attempt <= c.maxRetries; attempt++ {
			if attempt > 0 {
				delay := time.Second << uint(attempt-1)
				logging.GeminiWarn("stream attempt %d/%d failed, retrying in %s: %v",
					attempt, c.maxRetries+1, delay, lastErr)
				if err := c.sleep(ctx, delay); err != nil {
					errs <- err
					return
				}
			}

			delivered, err := c.streamOnce(ctx, body, chunks)
			if err == nil {
				return
			}
			if delivered || !retryable(err) {
				errs <- err
				return
			}
			lastErr = err
		}
		errs <- lastErr
	}()

	return chunks, errs
}

// streamOnce performs one streaming request. The bool reports whether any
// delta reached the caller, which makes the failure non-retryable.
func (c *Client) streamOnce(ctx context.Context, body []byte, chunks chan<- string) (bool, error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, &transportError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, decodeAPIError(resp)
	}

	// Close the body when the context dies so the scanner unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			resp.Body.Close()
		case <-done:
		}
	}()

	delivered := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk Response
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			logging.GeminiDebug("skipping malformed stream chunk: %v", err)
			continue
		}
		if chunk.Error != nil {
			return delivered, fmt.Errorf("gemini: stream error %d: %s", chunk.Error.Code, chunk.Error.Message)
		}
		if text := chunk.text(); text != "" {
			select {
			case chunks <- text:
				delivered = true
			case <-ctx.Done():
				return delivered, ctx.Err()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		return delivered, fmt.Errorf("gemini: read stream: %w", err)
	}
	return delivered, nil
}

// statusError is a non-200 response received before the stream opened.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gemini: upstream status %d: %s", e.code, e.message)
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "gemini: request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var wrapped struct {
		Error *APIError `json:"error"`
	}
	msg := http.StatusText(resp.StatusCode)
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
		msg = wrapped.Error.Message
	}
	return &statusError{code: resp.StatusCode, message: msg}
}

// retryable reports whether a pre-stream failure is worth another attempt:
// transport errors, throttling, and server-side 5xx.
func retryable(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return false
}
