package cellar

import (
	"context"
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// StockItemRepository defines persistence for the per-key projection cache
type StockItemRepository interface {
	// FindByID finds a stock item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockItem, error)

	// FindByKey finds the stock item for a wine-vintage-location key
	FindByKey(ctx context.Context, key StockItemKey) (*StockItem, error)

	// GetOrCreate returns the stock item for a key, creating an empty one
	// when none exists yet
	GetOrCreate(ctx context.Context, key StockItemKey) (*StockItem, error)

	// FindAll finds stock items matching the filter (location_id, wine_id
	// and vintage_id keys are supported)
	FindAll(ctx context.Context, filter shared.Filter) ([]StockItem, error)

	// FindBelowThreshold finds items whose available stock is below the
	// given threshold; a zero threshold uses each item's own MinQuantity
	FindBelowThreshold(ctx context.Context, threshold Quantity, locationID *uuid.UUID) ([]StockItem, error)

	// FindWithReservations finds items that currently have reserved stock
	FindWithReservations(ctx context.Context) ([]StockItem, error)

	// Save creates or updates a stock item without a version guard
	Save(ctx context.Context, item *StockItem) error

	// SaveWithLock persists the item only if the stored version still
	// matches the version the item was loaded at; a lost race surfaces as
	// shared.ErrStaleState
	SaveWithLock(ctx context.Context, item *StockItem) error

	// Count counts stock items matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// LedgerEntryRepository defines persistence for the append-only ledger.
// Entries are immutable: the interface deliberately has no update or delete.
type LedgerEntryRepository interface {
	// Append appends one or more entries as a single atomic unit.
	// Either every entry is committed or none is.
	Append(ctx context.Context, entries ...*LedgerEntry) error

	// FindByKey returns the full entry history for a stock item in
	// recorded order
	FindByKey(ctx context.Context, key StockItemKey) ([]LedgerEntry, error)

	// FindByKeyInRange returns the entry history for a stock item within a
	// time range, in recorded order
	FindByKeyInRange(ctx context.Context, key StockItemKey, from, to time.Time) ([]LedgerEntry, error)

	// FindByRelatedEntryID returns entries linked to the given entry
	FindByRelatedEntryID(ctx context.Context, relatedID uuid.UUID) ([]LedgerEntry, error)

	// CountByKey counts the entries recorded for a stock item
	CountByKey(ctx context.Context, key StockItemKey) (int64, error)
}

// IntakeOrderRepository defines persistence for intake orders
type IntakeOrderRepository interface {
	// FindByID finds an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*IntakeOrder, error)

	// FindByReference finds an order by its external reference
	FindByReference(ctx context.Context, reference string) (*IntakeOrder, error)

	// FindByStatus finds orders in a given state
	FindByStatus(ctx context.Context, status IntakeOrderStatus, filter shared.Filter) ([]IntakeOrder, error)

	// Save creates or updates an order together with its lines
	Save(ctx context.Context, order *IntakeOrder) error

	// SaveWithLock persists the order only if the stored version still
	// matches; a lost race surfaces as shared.ErrStaleState
	SaveWithLock(ctx context.Context, order *IntakeOrder) error
}
