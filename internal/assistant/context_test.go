package assistant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangadome/internal/cache"
	"mangadome/internal/library"
)

type fakeLister struct {
	items []library.Item
	err   error
	calls atomic.Int32
	block chan struct{} // when set, ListItems waits on it
}

func (f *fakeLister) ListItems(ctx context.Context, userID string) ([]library.Item, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.items, f.err
}

func testItems() []library.Item {
	return []library.Item{
		{Title: "Berserk", Status: library.StatusReading, Favorite: true},
		{Title: "Vagabond", Status: library.StatusReading},
		{Title: "Vinland Saga", Status: library.StatusReading},
		{Title: "Blame!", Status: library.StatusReading},
		{Title: "Monster", Status: library.StatusCompleted},
		{Title: "Pluto", Status: library.StatusPlanToRead},
	}
}

func TestLibraryContextRendering(t *testing.T) {
	c := cache.NewMemory()
	defer c.Close()
	p := NewContextProvider(c, &fakeLister{items: testItems()}, time.Hour)

	got := p.LibraryContext(context.Background(), "u1")
	assert.Contains(t, got, "Currently reading: Berserk, Vagabond, Vinland Saga", "capped at three titles")
	assert.NotContains(t, got, "Blame!")
	assert.Contains(t, got, "Completed: Monster")
	assert.Contains(t, got, "Plans to read: Pluto")
	assert.Contains(t, got, "Favorites: Berserk")
}

func TestLibraryContextCacheHit(t *testing.T) {
	c := cache.NewMemory()
	defer c.Close()
	lister := &fakeLister{items: testItems()}
	p := NewContextProvider(c, lister, time.Hour)

	first := p.LibraryContext(context.Background(), "u1")
	second := p.LibraryContext(context.Background(), "u1")
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), lister.calls.Load(), "second call served from cache")
}

func TestLibraryContextStaleAfterEdit(t *testing.T) {
	// Library edits do not invalidate the digest; staleness up to the TTL is
	// the accepted tradeoff.
	c := cache.NewMemory()
	defer c.Close()
	lister := &fakeLister{items: testItems()}
	p := NewContextProvider(c, lister, time.Hour)

	before := p.LibraryContext(context.Background(), "u1")
	lister.items = append(lister.items, library.Item{Title: "Dorohedoro", Status: library.StatusReading})
	after := p.LibraryContext(context.Background(), "u1")

	assert.Equal(t, before, after, "digest stays stale until TTL expiry")
	assert.NotContains(t, after, "Dorohedoro")
}

func TestLibraryContextDegradesGracefully(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		c := cache.NewMemory()
		defer c.Close()
		p := NewContextProvider(c, &fakeLister{err: errors.New("store down")}, time.Hour)
		assert.Equal(t, "", p.LibraryContext(context.Background(), "u1"))
	})

	t.Run("empty library", func(t *testing.T) {
		c := cache.NewMemory()
		defer c.Close()
		p := NewContextProvider(c, &fakeLister{}, time.Hour)
		assert.Equal(t, "", p.LibraryContext(context.Background(), "u1"))
	})

	t.Run("no user id", func(t *testing.T) {
		p := NewContextProvider(nil, &fakeLister{items: testItems()}, time.Hour)
		assert.Equal(t, "", p.LibraryContext(context.Background(), ""))
	})
}

func TestLibraryContextConcurrentMissesCollapse(t *testing.T) {
	c := cache.NewMemory()
	defer c.Close()
	lister := &fakeLister{items: testItems(), block: make(chan struct{})}
	p := NewContextProvider(c, lister, time.Hour)

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.LibraryContext(context.Background(), "u1")
		}(i)
	}

	// Let the goroutines pile onto the single in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(lister.block)
	wg.Wait()

	require.LessOrEqual(t, lister.calls.Load(), int32(2), "misses collapse into at most a couple of store reads")
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}
