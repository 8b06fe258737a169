package cellar

import (
	"context"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/google/uuid"
)

// AlertService evaluates stock levels against thresholds. It is a pure
// read over the projection: no mutation, no side effects, safe to run at
// any cadence including inline with every read.
type AlertService struct {
	stockRepo cellar.StockItemRepository
}

// NewAlertService creates a new AlertService
func NewAlertService(stockRepo cellar.StockItemRepository) *AlertService {
	return &AlertService{stockRepo: stockRepo}
}

// EvaluateLowStock returns every holding whose available stock is below
// the given threshold, optionally scoped to one location. A zero threshold
// evaluates each holding against its own configured minimum instead.
func (s *AlertService) EvaluateLowStock(ctx context.Context, threshold cellar.Quantity, locationID *uuid.UUID) ([]LowStockAlert, error) {
	items, err := s.stockRepo.FindBelowThreshold(ctx, threshold, locationID)
	if err != nil {
		return nil, err
	}

	alerts := make([]LowStockAlert, 0, len(items))
	for i := range items {
		item := &items[i]
		effective := threshold
		if effective.IsZero() {
			effective = item.MinQuantity
		}
		alerts = append(alerts, LowStockAlert{
			Key:       item.Key(),
			Available: item.Available(),
			Threshold: effective,
		})
	}
	return alerts, nil
}
