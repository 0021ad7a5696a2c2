package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process CounterStore keeping a timestamp log per key.
// The log is pruned on every call, so window state expires naturally as the
// window slides.
type MemoryStore struct {
	mu   sync.Mutex
	logs map[string][]time.Time
	now  func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs: make(map[string][]time.Time),
		now:  time.Now,
	}
}

// ExecSlidingWindow implements CounterStore. The whole check-and-increment
// runs under one lock, so concurrent callers cannot jointly exceed the limit.
func (s *MemoryStore) ExecSlidingWindow(_ context.Context, key string, limit int64, window time.Duration) (*Decision, error) {
	if window <= 0 {
		window = time.Second
	}
	now := s.now()
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[key]
	pruned := log[:0]
	for _, ts := range log {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	if int64(len(pruned)) >= limit {
		s.logs[key] = pruned
		// Oldest permit in the window decides when capacity replenishes.
		retryAfter := pruned[0].Add(window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return &Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	pruned = append(pruned, now)
	s.logs[key] = pruned
	return &Decision{
		Allowed:   true,
		Remaining: limit - int64(len(pruned)),
	}, nil
}
