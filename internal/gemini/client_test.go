package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, deltas []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Contains(t, r.URL.RawQuery, "alt=sse")

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, d := range deltas {
			chunk := Response{Candidates: []Candidate{{Content: Content{Role: "model", Parts: []Part{{Text: d}}}}}}
			payload, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func newTestClient(srv *httptest.Server, retries int) *Client {
	c := New(Options{APIKey: "test-key", BaseURL: srv.URL, MaxRetries: retries})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func collect(t *testing.T, chunks <-chan string, errs <-chan error) (string, error) {
	t.Helper()
	var out string
	for c := range chunks {
		out += c
	}
	return out, <-errs
}

func TestStreamGenerate(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{"Hello", ", ", "world"}))
	defer srv.Close()

	c := newTestClient(srv, 1)
	chunks, errs := c.StreamGenerate(context.Background(), NewRequest("be brief", []Content{
		{Role: "user", Parts: []Part{{Text: "hi"}}},
	}, 1024))

	out, err := collect(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", out)
}

func TestStreamGenerateNoKey(t *testing.T) {
	c := New(Options{})
	chunks, errs := c.StreamGenerate(context.Background(), NewRequest("", nil, 0))

	out, err := collect(t, chunks, errs)
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Equal(t, "API key not configured", err.Error())
}

func TestStreamGenerateRetriesThrottle(t *testing.T) {
	var hits atomic.Int32
	inner := sseHandler(t, []string{"ok"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		inner(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv, 3)
	chunks, errs := c.StreamGenerate(context.Background(), NewRequest("", []Content{
		{Role: "user", Parts: []Part{{Text: "hi"}}},
	}, 0))

	out, err := collect(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), hits.Load())
}

func TestStreamGenerateNonRetryableStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"invalid argument","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, 3)
	chunks, errs := c.StreamGenerate(context.Background(), NewRequest("", nil, 0))

	_, err := collect(t, chunks, errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid argument")
	assert.Equal(t, int32(1), hits.Load(), "400s are not retried")
}

func TestStreamGenerateRetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv, 2)
	chunks, errs := c.StreamGenerate(context.Background(), NewRequest("", nil, 0))

	_, err := collect(t, chunks, errs)
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load(), "retries=2 means 3 attempts")
}

func TestStreamGenerateMidStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		chunk := Response{Candidates: []Candidate{{Content: Content{Parts: []Part{{Text: "partial"}}}}}}
		payload, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		fmt.Fprintf(w, "data: {\"error\":{\"code\":500,\"message\":\"internal\"}}\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	c := newTestClient(srv, 3)
	chunks, errs := c.StreamGenerate(context.Background(), NewRequest("", nil, 0))

	out, err := collect(t, chunks, errs)
	assert.Equal(t, "partial", out, "delivered deltas are kept")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal")
}

func TestNewRequest(t *testing.T) {
	req := NewRequest("system text", []Content{{Role: "user", Parts: []Part{{Text: "q"}}}}, 2048)
	require.NotNil(t, req.SystemInstruction)
	assert.Equal(t, "system text", req.SystemInstruction.Parts[0].Text)
	require.Len(t, req.Tools, 1)
	assert.NotNil(t, req.Tools[0].GoogleSearch)
	assert.Equal(t, 2048, req.GenerationConfig.MaxOutputTokens)

	bare := NewRequest("", nil, 0)
	assert.Nil(t, bare.SystemInstruction)
	assert.Nil(t, bare.GenerationConfig)
}
