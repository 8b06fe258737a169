package cellar

import (
	"context"
	"testing"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertService_EvaluateLowStock(t *testing.T) {
	ctx := context.Background()

	seedHolding := func(t *testing.T, repo *fakeStockItemRepository, locationID uuid.UUID, onHand, reserved, minQuantity cellar.Quantity) cellar.StockItemKey {
		t.Helper()
		key := cellar.NewStockItemKey(uuid.New(), uuid.New(), locationID)
		item, err := repo.GetOrCreate(ctx, key)
		require.NoError(t, err)
		item.OnHand = onHand
		item.Reserved = reserved
		item.MinQuantity = minQuantity
		return key
	}

	t.Run("explicit threshold applies to every holding", func(t *testing.T) {
		repo := newFakeStockItemRepository()
		lowKey := seedHolding(t, repo, uuid.New(), 3, 0, 0)
		seedHolding(t, repo, uuid.New(), 20, 0, 0)
		service := NewAlertService(repo)

		alerts, err := service.EvaluateLowStock(ctx, 5, nil)

		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, lowKey, alerts[0].Key)
		assert.Equal(t, cellar.Quantity(3), alerts[0].Available)
		assert.Equal(t, cellar.Quantity(5), alerts[0].Threshold)
	})

	t.Run("zero threshold uses per-holding minimums", func(t *testing.T) {
		repo := newFakeStockItemRepository()
		lowKey := seedHolding(t, repo, uuid.New(), 4, 0, 6)
		seedHolding(t, repo, uuid.New(), 4, 0, 0)
		seedHolding(t, repo, uuid.New(), 10, 0, 6)
		service := NewAlertService(repo)

		alerts, err := service.EvaluateLowStock(ctx, 0, nil)

		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, lowKey, alerts[0].Key)
		assert.Equal(t, cellar.Quantity(6), alerts[0].Threshold)
	})

	t.Run("reservations count against availability", func(t *testing.T) {
		repo := newFakeStockItemRepository()
		key := seedHolding(t, repo, uuid.New(), 10, 7, 0)
		service := NewAlertService(repo)

		alerts, err := service.EvaluateLowStock(ctx, 5, nil)

		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, key, alerts[0].Key)
		assert.Equal(t, cellar.Quantity(3), alerts[0].Available)
	})

	t.Run("location scope narrows the result", func(t *testing.T) {
		repo := newFakeStockItemRepository()
		locationID := uuid.New()
		scopedKey := seedHolding(t, repo, locationID, 2, 0, 0)
		seedHolding(t, repo, uuid.New(), 2, 0, 0)
		service := NewAlertService(repo)

		alerts, err := service.EvaluateLowStock(ctx, 5, &locationID)

		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, scopedKey, alerts[0].Key)
	})

	t.Run("nothing below threshold yields no alerts", func(t *testing.T) {
		repo := newFakeStockItemRepository()
		seedHolding(t, repo, uuid.New(), 20, 0, 0)
		service := NewAlertService(repo)

		alerts, err := service.EvaluateLowStock(ctx, 5, nil)

		require.NoError(t, err)
		assert.Empty(t, alerts)
	})
}
