package catalog

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when the local limiter denied the call after all
// retries were exhausted. User-actionable: try again later.
var ErrRateLimited = errors.New("catalog rate limited")

// ErrInvalidPayload wraps a 2xx response whose body could not be decoded.
var ErrInvalidPayload = errors.New("invalid upstream payload")

// UpstreamError is a non-2xx response from the catalog API after retries were
// exhausted. Message comes from the upstream's JSON error envelope when
// parseable, else from the transport status text.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.Status, e.Message)
}

// errorEnvelope is the catalog API's error body. Parsed opportunistically;
// any field may be absent.
type errorEnvelope struct {
	Status    int    `json:"status"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Err       string `json:"error"`
	ReportURL string `json:"report_url"`
}

// message selects the envelope field to surface: message wins over error.
func (env errorEnvelope) message() string {
	if env.Message != "" {
		return env.Message
	}
	return env.Err
}
