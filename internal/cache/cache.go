// Package cache provides the shared key-value store used for the assistant's
// library context. The interface mirrors the minimal GET / SET-with-expiry
// surface of an external store so a shared backend can be swapped in behind it.
package cache

import (
	"context"
	"time"
)

// Cache is a string key-value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key with the given TTL. A zero TTL means the
	// entry never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key if present.
	Delete(ctx context.Context, key string) error
}
