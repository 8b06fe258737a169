package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first mark succeeds", func(t *testing.T) {
		marked, err := store.MarkProcessed(ctx, "supplier-42/delivery-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, marked)
	})

	t.Run("second mark of same key is rejected", func(t *testing.T) {
		marked, err := store.MarkProcessed(ctx, "supplier-42/delivery-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, marked)
	})

	t.Run("different key is independent", func(t *testing.T) {
		marked, err := store.MarkProcessed(ctx, "supplier-42/delivery-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, marked)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		marked, err := store.MarkProcessed(ctx, "short-lived", time.Millisecond)
		require.NoError(t, err)
		assert.True(t, marked)

		time.Sleep(5 * time.Millisecond)

		marked, err = store.MarkProcessed(ctx, "short-lived", time.Minute)
		require.NoError(t, err)
		assert.True(t, marked)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "known", time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "known")
	require.NoError(t, err)
	assert.True(t, processed)

	t.Run("expired key reads as unprocessed", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "expiring", time.Millisecond)
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, "expiring")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "a", time.Millisecond)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, "b", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Size())

	time.Sleep(5 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
