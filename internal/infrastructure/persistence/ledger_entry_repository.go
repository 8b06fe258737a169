package persistence

import (
	"context"
	"time"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLedgerEntryRepository implements LedgerEntryRepository using GORM.
// The ledger is append-only: this repository never updates or deletes rows.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Append appends one or more entries as a single atomic unit
func (r *GormLedgerEntryRepository) Append(ctx context.Context, entries ...*cellar.LedgerEntry) error {
	if len(entries) == 0 {
		return shared.NewDomainError("EMPTY_APPEND", "At least one ledger entry is required")
	}
	for _, entry := range entries {
		if entry.Quantity.IsZero() {
			// A zero quantity reaching the ledger means the domain layer
			// and the append path diverged somewhere upstream.
			return shared.ErrConstraintViolation
		}
		if !entry.EntryType.IsValid() {
			return shared.NewDomainError("INVALID_ENTRY_TYPE", "Unknown ledger entry type")
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByKey returns the full entry history for a stock item in recorded order
func (r *GormLedgerEntryRepository) FindByKey(ctx context.Context, key cellar.StockItemKey) ([]cellar.LedgerEntry, error) {
	var entries []cellar.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("wine_id = ? AND vintage_id = ? AND location_id = ?", key.WineID, key.VintageID, key.LocationID).
		Order("recorded_at, created_at").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByKeyInRange returns the entry history for a stock item within a time
// range, in recorded order
func (r *GormLedgerEntryRepository) FindByKeyInRange(ctx context.Context, key cellar.StockItemKey, from, to time.Time) ([]cellar.LedgerEntry, error) {
	var entries []cellar.LedgerEntry
	query := r.db.WithContext(ctx).
		Where("wine_id = ? AND vintage_id = ? AND location_id = ?", key.WineID, key.VintageID, key.LocationID)

	if !from.IsZero() {
		query = query.Where("recorded_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("recorded_at <= ?", to)
	}

	if err := query.Order("recorded_at, created_at").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByRelatedEntryID returns entries linked to the given entry
func (r *GormLedgerEntryRepository) FindByRelatedEntryID(ctx context.Context, relatedID uuid.UUID) ([]cellar.LedgerEntry, error) {
	var entries []cellar.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("related_entry_id = ?", relatedID).
		Order("recorded_at, created_at").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByKey counts the entries recorded for a stock item
func (r *GormLedgerEntryRepository) CountByKey(ctx context.Context, key cellar.StockItemKey) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&cellar.LedgerEntry{}).
		Where("wine_id = ? AND vintage_id = ? AND location_id = ?", key.WineID, key.VintageID, key.LocationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormLedgerEntryRepository implements LedgerEntryRepository
var _ cellar.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
