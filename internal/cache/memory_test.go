package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set then get", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		require.NoError(t, m.Set(ctx, "library:u1", "reading: Berserk", time.Hour))

		got, ok, err := m.Get(ctx, "library:u1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "reading: Berserk", got)
	})

	t.Run("miss on absent key", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		_, ok, err := m.Get(ctx, "library:nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired entry is a miss and evicted", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		base := time.Now()
		m.now = func() time.Time { return base }
		require.NoError(t, m.Set(ctx, "k", "v", time.Minute))

		m.now = func() time.Time { return base.Add(2 * time.Minute) }
		_, ok, err := m.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		base := time.Now()
		m.now = func() time.Time { return base }
		require.NoError(t, m.Set(ctx, "k", "v", 0))

		m.now = func() time.Time { return base.Add(1000 * time.Hour) }
		got, ok, err := m.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("last writer wins", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		require.NoError(t, m.Set(ctx, "k", "first", time.Hour))
		require.NoError(t, m.Set(ctx, "k", "second", time.Hour))

		got, ok, _ := m.Get(ctx, "k")
		assert.True(t, ok)
		assert.Equal(t, "second", got)
	})

	t.Run("delete", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		require.NoError(t, m.Set(ctx, "k", "v", time.Hour))
		require.NoError(t, m.Delete(ctx, "k"))

		_, ok, _ := m.Get(ctx, "k")
		assert.False(t, ok)
	})
}
