package library

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(n int) *int { return &n }

func TestUpsertAndListItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertItem(ctx, Item{
		UserID: "u1", MalID: 11, Title: "Naruto", Status: StatusReading,
	}))
	require.NoError(t, s.UpsertItem(ctx, Item{
		UserID: "u1", MalID: 2, Title: "Berserk", Status: StatusCompleted, Favorite: true, Score: intPtr(10),
	}))

	items, err := s.ListItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Berserk", items[0].Title, "most recent first")
	assert.True(t, items[0].Favorite)
	require.NotNil(t, items[0].Score)
	assert.Equal(t, 10, *items[0].Score)

	t.Run("upsert replaces the existing row", func(t *testing.T) {
		require.NoError(t, s.UpsertItem(ctx, Item{
			UserID: "u1", MalID: 11, Title: "Naruto", Status: StatusCompleted,
		}))
		items, err := s.ListItems(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, StatusCompleted, items[0].Status)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		items, err := s.ListItems(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestUpsertItemValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.UpsertItem(ctx, Item{MalID: 1, Status: StatusReading}))
	assert.Error(t, s.UpsertItem(ctx, Item{UserID: "u1", MalID: 1, Status: Status("watching")}))
}

func TestDeleteItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertItem(ctx, Item{UserID: "u1", MalID: 5, Title: "Monster", Status: StatusPlanToRead}))
	require.NoError(t, s.DeleteItem(ctx, "u1", 5))

	items, err := s.ListItems(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.NoError(t, s.DeleteItem(ctx, "u1", 5), "deleting a missing entry is fine")
}

func TestReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r, err := s.AddReview(ctx, Review{UserID: "u1", MalID: 2, Rating: 9, Body: "brutal and beautiful"})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	_, err = s.AddReview(ctx, Review{UserID: "u2", MalID: 2, Rating: 7, Body: "slow start"})
	require.NoError(t, err)

	reviews, err := s.ListReviews(ctx, 2)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "slow start", reviews[0].Body, "newest first")

	t.Run("rating bounds enforced", func(t *testing.T) {
		_, err := s.AddReview(ctx, Review{UserID: "u1", MalID: 2, Rating: 0})
		assert.Error(t, err)
		_, err = s.AddReview(ctx, Review{UserID: "u1", MalID: 2, Rating: 11})
		assert.Error(t, err)
	})
}
