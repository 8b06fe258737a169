package persistence

import (
	"context"
	"errors"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockItemRepository implements StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindByID finds a stock item by its ID
func (r *GormStockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*cellar.StockItem, error) {
	var item cellar.StockItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByKey finds the stock item for a wine-vintage-location key
func (r *GormStockItemRepository) FindByKey(ctx context.Context, key cellar.StockItemKey) (*cellar.StockItem, error) {
	var item cellar.StockItem
	if err := r.db.WithContext(ctx).
		Where("wine_id = ? AND vintage_id = ? AND location_id = ?", key.WineID, key.VintageID, key.LocationID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetOrCreate gets the existing stock item for a key or creates an empty one
func (r *GormStockItemRepository) GetOrCreate(ctx context.Context, key cellar.StockItemKey) (*cellar.StockItem, error) {
	item, err := r.FindByKey(ctx, key)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	item, err = cellar.NewStockItem(key)
	if err != nil {
		return nil, err
	}

	// Use ON CONFLICT to handle race conditions
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wine_id"}, {Name: "vintage_id"}, {Name: "location_id"}},
			DoNothing: true,
		}).
		Create(item)
	if result.Error != nil {
		return nil, result.Error
	}

	// Zero rows affected means another writer created the row first
	if result.RowsAffected == 0 {
		return r.FindByKey(ctx, key)
	}

	return item, nil
}

// FindAll finds stock items matching the filter
func (r *GormStockItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]cellar.StockItem, error) {
	var items []cellar.StockItem
	query := r.applyFilter(r.db.WithContext(ctx).Model(&cellar.StockItem{}), filter)

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindBelowThreshold finds items whose available stock is below the given
// threshold. A zero threshold uses each item's own MinQuantity instead.
func (r *GormStockItemRepository) FindBelowThreshold(ctx context.Context, threshold cellar.Quantity, locationID *uuid.UUID) ([]cellar.StockItem, error) {
	var items []cellar.StockItem
	query := r.db.WithContext(ctx).Model(&cellar.StockItem{})

	if threshold > 0 {
		query = query.Where("(on_hand - reserved) < ?", threshold.Uint64())
	} else {
		query = query.Where("min_quantity > 0 AND (on_hand - reserved) < min_quantity")
	}
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}

	if err := query.Order("wine_id, vintage_id, location_id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindWithReservations finds items that currently have reserved stock
func (r *GormStockItemRepository) FindWithReservations(ctx context.Context) ([]cellar.StockItem, error) {
	var items []cellar.StockItem
	if err := r.db.WithContext(ctx).
		Where("reserved > 0").
		Order("wine_id, vintage_id, location_id").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save creates or updates a stock item without a version guard
func (r *GormStockItemRepository) Save(ctx context.Context, item *cellar.StockItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormStockItemRepository) SaveWithLock(ctx context.Context, item *cellar.StockItem) error {
	result := r.db.WithContext(ctx).
		Model(item).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Updates(map[string]interface{}{
			"on_hand":      item.OnHand,
			"reserved":     item.Reserved,
			"unit_cost":    item.UnitCost,
			"min_quantity": item.MinQuantity,
			"version":      item.Version,
			"updated_at":   item.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrStaleState
	}
	return nil
}

// Count counts stock items matching the filter
func (r *GormStockItemRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&cellar.StockItem{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormStockItemRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, StockItemSortFields, "updated_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("wine_id, vintage_id, location_id")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormStockItemRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "wine_id":
			query = query.Where("wine_id = ?", value)
		case "vintage_id":
			query = query.Where("vintage_id = ?", value)
		case "location_id":
			query = query.Where("location_id = ?", value)
		case "has_stock":
			if value == true {
				query = query.Where("on_hand > 0")
			}
		case "has_reservations":
			if value == true {
				query = query.Where("reserved > 0")
			}
		}
	}

	return query
}

// Ensure GormStockItemRepository implements StockItemRepository
var _ cellar.StockItemRepository = (*GormStockItemRepository)(nil)
