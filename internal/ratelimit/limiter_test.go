package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, capacity int64, window time.Duration) (*SlidingWindow, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	lim, err := New(store, Config{Capacity: capacity, Window: window})
	require.NoError(t, err)
	return lim, store
}

func TestSlidingWindowBound(t *testing.T) {
	ctx := context.Background()
	lim, store := newTestLimiter(t, 3, time.Second)

	base := time.Now()
	store.now = func() time.Time { return base }

	// At most 3 allows within the trailing second.
	allowed := 0
	for i := 0; i < 10; i++ {
		d, err := lim.Allow(ctx, "jikan")
		require.NoError(t, err)
		if d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)

	// Still inside the window: denied, with a meaningful retry hint.
	d, err := lim.Allow(ctx, "jikan")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	// Window slides forward: capacity replenishes.
	store.now = func() time.Time { return base.Add(1001 * time.Millisecond) }
	d, err = lim.Allow(ctx, "jikan")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestSlidingWindowPartialReplenish(t *testing.T) {
	ctx := context.Background()
	lim, store := newTestLimiter(t, 3, time.Second)

	base := time.Now()

	// Two permits at t=0, one at t=600ms.
	store.now = func() time.Time { return base }
	for i := 0; i < 2; i++ {
		d, _ := lim.Allow(ctx, "k")
		require.True(t, d.Allowed)
	}
	store.now = func() time.Time { return base.Add(600 * time.Millisecond) }
	d, _ := lim.Allow(ctx, "k")
	require.True(t, d.Allowed)

	// t=800ms: all three still inside the window.
	store.now = func() time.Time { return base.Add(800 * time.Millisecond) }
	d, _ = lim.Allow(ctx, "k")
	assert.False(t, d.Allowed)

	// t=1100ms: the first two slid out, one remains, so two slots free.
	store.now = func() time.Time { return base.Add(1100 * time.Millisecond) }
	d, _ = lim.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	d, _ = lim.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	d, _ = lim.Allow(ctx, "k")
	assert.False(t, d.Allowed)
}

func TestSlidingWindowKeysIndependent(t *testing.T) {
	ctx := context.Background()
	lim, store := newTestLimiter(t, 1, time.Second)

	base := time.Now()
	store.now = func() time.Time { return base }

	d, _ := lim.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = lim.Allow(ctx, "a")
	assert.False(t, d.Allowed)

	d, _ = lim.Allow(ctx, "b")
	assert.True(t, d.Allowed)
}

func TestSlidingWindowConcurrent(t *testing.T) {
	ctx := context.Background()
	lim, _ := newTestLimiter(t, 3, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := lim.Allow(ctx, "shared")
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, allowed, "atomic check-and-increment must not lose permits")
}

type failingStore struct{}

func (failingStore) ExecSlidingWindow(context.Context, string, int64, time.Duration) (*Decision, error) {
	return nil, errors.New("store unreachable")
}

func TestStoreFailurePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("fail-closed denies and surfaces the error", func(t *testing.T) {
		lim, err := New(failingStore{}, Config{Capacity: 3, Window: time.Second})
		require.NoError(t, err)

		d, err := lim.Allow(ctx, "k")
		assert.Error(t, err)
		assert.False(t, d.Allowed)
	})

	t.Run("fallback-local keeps the budget enforced", func(t *testing.T) {
		lim, err := New(failingStore{}, Config{Capacity: 2, Window: time.Minute, FallbackLocal: true})
		require.NoError(t, err)

		allowed := 0
		for i := 0; i < 5; i++ {
			d, err := lim.Allow(ctx, "k")
			require.NoError(t, err)
			if d.Allowed {
				allowed++
			}
		}
		assert.Equal(t, 2, allowed)
	})
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Config{Capacity: 1})
	assert.Error(t, err)

	_, err = New(NewMemoryStore(), Config{Capacity: 0})
	assert.Error(t, err)
}
