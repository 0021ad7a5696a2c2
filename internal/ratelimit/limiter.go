// Package ratelimit gates outbound calls to shared upstream resources.
//
// The limiter enforces a sliding-window budget per key: at most Capacity
// acquisitions succeed within any trailing Window. The window state lives in a
// CounterStore so horizontally scaled instances can share one budget; the
// in-repo MemoryStore serves single-instance deployments.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"mangadome/internal/logging"
)

// Decision captures the result of a rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter decides whether an acquisition is allowed right now. It never
// blocks; callers choose whether to wait and retry.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Decision, error)
}

// CounterStore is the atomic sliding-window primitive. Implementations must
// provide check-and-increment semantics: concurrent calls for one key must
// never grant more than limit permits within the trailing window.
type CounterStore interface {
	ExecSlidingWindow(ctx context.Context, key string, limit int64, window time.Duration) (*Decision, error)
}

// Config holds limiter parameters.
type Config struct {
	Capacity int64
	Window   time.Duration

	// FallbackLocal controls the failure policy when the store is
	// unreachable: when true the limiter degrades to a local fixed-window
	// counter with the same capacity; when false acquisitions are denied
	// until the store recovers.
	FallbackLocal bool
}

// SlidingWindow is a Limiter backed by a CounterStore.
type SlidingWindow struct {
	store    CounterStore
	capacity int64
	window   time.Duration
	local    *localFallback // nil when the policy is fail-closed
}

// New constructs a SlidingWindow limiter.
func New(store CounterStore, cfg Config) (*SlidingWindow, error) {
	if store == nil {
		return nil, errors.New("counter store is required")
	}
	if cfg.Capacity <= 0 {
		return nil, errors.New("capacity must be positive")
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Second
	}
	lim := &SlidingWindow{
		store:    store,
		capacity: cfg.Capacity,
		window:   window,
	}
	if cfg.FallbackLocal {
		lim.local = newLocalFallback()
	}
	return lim, nil
}

// Allow implements Limiter. Store failures follow the configured policy:
// degrade to the local counter, or deny until the store recovers.
func (lim *SlidingWindow) Allow(ctx context.Context, key string) (*Decision, error) {
	decision, err := lim.store.ExecSlidingWindow(ctx, key, lim.capacity, lim.window)
	if err == nil {
		return decision, nil
	}
	if lim.local != nil {
		logging.RateLimitWarn("store unreachable for key %q, using local fallback: %v", key, err)
		return lim.local.allow(key, lim.capacity, lim.window, time.Now()), nil
	}
	logging.RateLimitWarn("store unreachable for key %q, denying (fail-closed): %v", key, err)
	return &Decision{Allowed: false, RetryAfter: lim.window}, err
}
