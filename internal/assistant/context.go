package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"mangadome/internal/cache"
	"mangadome/internal/library"
	"mangadome/internal/logging"
)

// LibraryLister is the slice of the library store the context provider needs.
type LibraryLister interface {
	ListItems(ctx context.Context, userID string) ([]library.Item, error)
}

// ContextProvider renders a short digest of a user's library for prompt
// injection, cached to avoid hitting the store on every assistant turn.
type ContextProvider struct {
	cache cache.Cache
	store LibraryLister
	ttl   time.Duration
	group singleflight.Group
}

// NewContextProvider builds a provider. ttl defaults to 24 hours.
func NewContextProvider(c cache.Cache, store LibraryLister, ttl time.Duration) *ContextProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ContextProvider{cache: c, store: store, ttl: ttl}
}

// LibraryContext returns the cached library digest for userID, computing and
// caching it on miss. Any failure degrades to an empty string; the assistant
// works without personalization. Concurrent misses for the same user collapse
// into one store read.
func (p *ContextProvider) LibraryContext(ctx context.Context, userID string) string {
	if userID == "" || p.store == nil {
		return ""
	}
	key := "library:" + userID

	if p.cache != nil {
		if val, ok, err := p.cache.Get(ctx, key); err == nil && ok {
			return val
		} else if err != nil {
			logging.AssistantWarn("context cache read failed for %s: %v", key, err)
		}
	}

	val, err, _ := p.group.Do(key, func() (interface{}, error) {
		items, err := p.store.ListItems(ctx, userID)
		if err != nil {
			return "", err
		}
		digest := renderLibraryContext(items)
		if p.cache != nil && digest != "" {
			if err := p.cache.Set(ctx, key, digest, p.ttl); err != nil {
				logging.AssistantWarn("context cache write failed for %s: %v", key, err)
			}
		}
		return digest, nil
	})
	if err != nil {
		logging.AssistantWarn("library context unavailable for user %s: %v", userID, err)
		return ""
	}
	return val.(string)
}

// renderLibraryContext partitions items by status and favorite flag and
// renders a fixed-format block with up to three titles per bucket. No items
// renders to an empty string.
func renderLibraryContext(items []library.Item) string {
	if len(items) == 0 {
		return ""
	}
	var reading, completed, planned, favorites []string
	for _, it := range items {
		switch it.Status {
		case library.StatusReading:
			reading = append(reading, it.Title)
		case library.StatusCompleted:
			completed = append(completed, it.Title)
		case library.StatusPlanToRead:
			planned = append(planned, it.Title)
		}
		if it.Favorite {
			favorites = append(favorites, it.Title)
		}
	}

	var b strings.Builder
	b.WriteString("About this reader's library:")
	writeBucket(&b, "Currently reading", reading)
	writeBucket(&b, "Completed", completed)
	writeBucket(&b, "Plans to read", planned)
	writeBucket(&b, "Favorites", favorites)
	return b.String()
}

func writeBucket(b *strings.Builder, label string, titles []string) {
	if len(titles) == 0 {
		return
	}
	if len(titles) > 3 {
		titles = titles[:3]
	}
	fmt.Fprintf(b, "\n- %s: %s", label, strings.Join(titles, ", "))
}
