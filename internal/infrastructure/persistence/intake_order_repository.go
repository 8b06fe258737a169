package persistence

import (
	"context"
	"errors"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormIntakeOrderRepository implements IntakeOrderRepository using GORM
type GormIntakeOrderRepository struct {
	db *gorm.DB
}

// NewGormIntakeOrderRepository creates a new GormIntakeOrderRepository
func NewGormIntakeOrderRepository(db *gorm.DB) *GormIntakeOrderRepository {
	return &GormIntakeOrderRepository{db: db}
}

// FindByID finds an order with its lines
func (r *GormIntakeOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*cellar.IntakeOrder, error) {
	var order cellar.IntakeOrder
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByReference finds an order by its external reference
func (r *GormIntakeOrderRepository) FindByReference(ctx context.Context, reference string) (*cellar.IntakeOrder, error) {
	var order cellar.IntakeOrder
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("reference = ?", reference).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByStatus finds orders in a given state
func (r *GormIntakeOrderRepository) FindByStatus(ctx context.Context, status cellar.IntakeOrderStatus, filter shared.Filter) ([]cellar.IntakeOrder, error) {
	var orders []cellar.IntakeOrder
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where("status = ?", status)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, IntakeOrderSortFields, "created_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates an order together with its lines
func (r *GormIntakeOrderRepository) Save(ctx context.Context, order *cellar.IntakeOrder) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(order).Error
}

// SaveWithLock saves with optimistic locking (checks version). Line changes
// are persisted alongside the guarded header update.
func (r *GormIntakeOrderRepository) SaveWithLock(ctx context.Context, order *cellar.IntakeOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(order).
			Where("id = ? AND version = ?", order.ID, order.Version-1).
			Updates(map[string]interface{}{
				"status":       order.StatusValue,
				"cancelled_at": order.CancelledAt,
				"version":      order.Version,
				"updated_at":   order.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrStaleState
		}

		for i := range order.Lines {
			line := &order.Lines[i]
			if err := tx.
				Model(line).
				Where("id = ?", line.ID).
				Updates(map[string]interface{}{
					"received_quantity": line.ReceivedQuantity,
					"updated_at":        line.UpdatedAt,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormIntakeOrderRepository implements IntakeOrderRepository
var _ cellar.IntakeOrderRepository = (*GormIntakeOrderRepository)(nil)
