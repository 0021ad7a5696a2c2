package ratelimit

import (
	"sync"
	"time"
)

// localFallback applies a conservative local fixed-window counter while the
// shared store is unreachable. Each instance enforces the full capacity on its
// own, so a degraded cluster may briefly exceed the shared budget; the fetch
// client's 429 handling absorbs that.
type localFallback struct {
	mu      sync.Mutex
	windows map[string]*windowCounter
}

type windowCounter struct {
	windowStart time.Time
	used        int64
}

func newLocalFallback() *localFallback {
	return &localFallback{windows: make(map[string]*windowCounter)}
}

func (fl *localFallback) allow(key string, capacity int64, window time.Duration, now time.Time) *Decision {
	if window <= 0 {
		window = time.Second
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()

	windowStart := now.Truncate(window)
	counter := fl.windows[key]
	if counter == nil {
		counter = &windowCounter{windowStart: windowStart}
		fl.windows[key] = counter
	}
	if counter.windowStart != windowStart {
		counter.windowStart = windowStart
		counter.used = 0
	}

	allowed := counter.used < capacity
	if allowed {
		counter.used++
	}
	remaining := capacity - counter.used
	if remaining < 0 {
		remaining = 0
	}
	retryAfter := time.Duration(0)
	if !allowed {
		retryAfter = windowStart.Add(window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
	}
	return &Decision{Allowed: allowed, Remaining: remaining, RetryAfter: retryAfter}
}
