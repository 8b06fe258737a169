package cellar

import (
	"testing"
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStockItemKey() StockItemKey {
	return NewStockItemKey(uuid.New(), uuid.New(), uuid.New())
}

func TestEntryType_IsValid(t *testing.T) {
	valid := []EntryType{
		EntryTypeReceive, EntryTypeConsume, EntryTypeMoveOut,
		EntryTypeMoveIn, EntryTypeReserve, EntryTypeRelease, EntryTypeAdjust,
	}
	for _, entryType := range valid {
		assert.True(t, entryType.IsValid(), entryType.String())
	}

	assert.False(t, EntryType("DESTROY").IsValid())
	assert.False(t, EntryType("").IsValid())
}

func TestEntryType_OnHandEffect(t *testing.T) {
	assert.True(t, EntryTypeReceive.AddsOnHand())
	assert.True(t, EntryTypeMoveIn.AddsOnHand())
	assert.True(t, EntryTypeConsume.RemovesOnHand())
	assert.True(t, EntryTypeMoveOut.RemovesOnHand())

	// reservations only shift bottles between pools
	assert.False(t, EntryTypeReserve.AddsOnHand())
	assert.False(t, EntryTypeReserve.RemovesOnHand())
	assert.False(t, EntryTypeRelease.AddsOnHand())
	assert.False(t, EntryTypeRelease.RemovesOnHand())
}

func TestAdjustDirection_IsValid(t *testing.T) {
	assert.True(t, AdjustIncrease.IsValid())
	assert.True(t, AdjustDecrease.IsValid())
	assert.False(t, AdjustDirection("SIDEWAYS").IsValid())
	assert.False(t, AdjustDirection("").IsValid())
}

func TestNewLedgerEntry(t *testing.T) {
	key := testStockItemKey()
	actorID := uuid.New()

	t.Run("creates entry successfully", func(t *testing.T) {
		entry, err := NewLedgerEntry(key, EntryTypeReceive, 12, actorID)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, entry.ID)
		assert.Equal(t, key, entry.Key())
		assert.Equal(t, EntryTypeReceive, entry.EntryType)
		assert.Equal(t, Quantity(12), entry.Quantity)
		assert.Equal(t, actorID, entry.ActorID)
		assert.False(t, entry.RecordedAt.IsZero())
		assert.Nil(t, entry.UnitCost)
		assert.Nil(t, entry.RelatedEntryID)
		assert.Nil(t, entry.ExpiresAt)
	})

	t.Run("fails with incomplete key", func(t *testing.T) {
		badKey := NewStockItemKey(uuid.New(), uuid.Nil, uuid.New())

		entry, err := NewLedgerEntry(badKey, EntryTypeReceive, 12, actorID)

		require.Error(t, err)
		assert.Nil(t, entry)
	})

	t.Run("fails with invalid entry type", func(t *testing.T) {
		entry, err := NewLedgerEntry(key, EntryType("DESTROY"), 12, actorID)

		require.Error(t, err)
		assert.Nil(t, entry)
	})

	t.Run("fails with zero quantity", func(t *testing.T) {
		entry, err := NewLedgerEntry(key, EntryTypeReceive, 0, actorID)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
		assert.Nil(t, entry)
	})

	t.Run("fails with nil actor", func(t *testing.T) {
		entry, err := NewLedgerEntry(key, EntryTypeReceive, 12, uuid.Nil)

		require.Error(t, err)
		assert.Nil(t, entry)
	})
}

func TestLedgerEntry_Builders(t *testing.T) {
	key := testStockItemKey()
	entry, err := NewLedgerEntry(key, EntryTypeReserve, 6, uuid.New())
	require.NoError(t, err)

	relatedID := uuid.New()
	expiresAt := time.Now().Add(24 * time.Hour)
	recordedAt := time.Now().Add(-time.Hour)

	entry.WithNotes("tasting event").
		WithRelatedEntryID(relatedID).
		WithExpiresAt(expiresAt).
		WithRecordedAt(recordedAt)

	assert.Equal(t, "tasting event", entry.Notes)
	require.NotNil(t, entry.RelatedEntryID)
	assert.Equal(t, relatedID, *entry.RelatedEntryID)
	require.NotNil(t, entry.ExpiresAt)
	assert.Equal(t, expiresAt, *entry.ExpiresAt)
	assert.Equal(t, recordedAt, entry.RecordedAt)
}

func TestLedgerEntry_IsExpired(t *testing.T) {
	key := testStockItemKey()
	now := time.Now()

	t.Run("no expiry never expires", func(t *testing.T) {
		entry, err := NewLedgerEntry(key, EntryTypeReserve, 6, uuid.New())
		require.NoError(t, err)

		assert.False(t, entry.IsExpired(now))
	})

	t.Run("future expiry is not expired", func(t *testing.T) {
		entry, err := NewLedgerEntry(key, EntryTypeReserve, 6, uuid.New())
		require.NoError(t, err)
		entry.WithExpiresAt(now.Add(time.Hour))

		assert.False(t, entry.IsExpired(now))
	})

	t.Run("past expiry is expired", func(t *testing.T) {
		entry, err := NewLedgerEntry(key, EntryTypeReserve, 6, uuid.New())
		require.NoError(t, err)
		entry.WithExpiresAt(now.Add(-time.Minute))

		assert.True(t, entry.IsExpired(now))
	})
}

func TestLedgerEntry_SignedQuantity(t *testing.T) {
	key := testStockItemKey()
	actorID := uuid.New()

	newEntry := func(t *testing.T, entryType EntryType) *LedgerEntry {
		t.Helper()
		entry, err := NewLedgerEntry(key, entryType, 10, actorID)
		require.NoError(t, err)
		return entry
	}

	assert.Equal(t, int64(10), newEntry(t, EntryTypeReceive).SignedQuantity())
	assert.Equal(t, int64(10), newEntry(t, EntryTypeMoveIn).SignedQuantity())
	assert.Equal(t, int64(-10), newEntry(t, EntryTypeConsume).SignedQuantity())
	assert.Equal(t, int64(-10), newEntry(t, EntryTypeMoveOut).SignedQuantity())

	// reservation entries leave on-hand untouched
	assert.Equal(t, int64(0), newEntry(t, EntryTypeReserve).SignedQuantity())
	assert.Equal(t, int64(0), newEntry(t, EntryTypeRelease).SignedQuantity())

	assert.Equal(t, int64(10), newEntry(t, EntryTypeAdjust).WithDirection(AdjustIncrease).SignedQuantity())
	assert.Equal(t, int64(-10), newEntry(t, EntryTypeAdjust).WithDirection(AdjustDecrease).SignedQuantity())
}

func TestLedgerEntry_WithUnitCost(t *testing.T) {
	key := testStockItemKey()
	entry, err := NewLedgerEntry(key, EntryTypeReceive, 12, uuid.New())
	require.NoError(t, err)

	cost := decimal.NewFromFloat(24.50)
	entry.WithUnitCost(cost)

	require.NotNil(t, entry.UnitCost)
	assert.True(t, cost.Equal(*entry.UnitCost))
}
