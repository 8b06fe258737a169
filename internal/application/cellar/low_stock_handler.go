package cellar

import (
	"context"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LowStockNotifier is the interface for delivering low-stock alerts.
// Implementations can back different channels (in-app, email, messaging).
type LowStockNotifier interface {
	// Notify delivers one low-stock alert
	Notify(ctx context.Context, alert LowStockAlert) error
}

// LowStockHandler reacts to StockBelowThreshold events emitted by stock
// mutations and forwards them to the configured notifier. Delivery runs on
// the event bus after the mutation committed, so a notifier failure can
// never affect the ledger.
type LowStockHandler struct {
	logger   *zap.Logger
	notifier LowStockNotifier
}

// NewLowStockHandler creates a handler with logging only
func NewLowStockHandler(logger *zap.Logger) *LowStockHandler {
	return &LowStockHandler{logger: logger}
}

// WithNotifier attaches a notifier for outward delivery
func (h *LowStockHandler) WithNotifier(notifier LowStockNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler subscribes to
func (h *LowStockHandler) EventTypes() []string {
	return []string{cellar.EventTypeStockBelowThreshold}
}

// Handle processes a StockBelowThreshold event
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	thresholdEvent, ok := event.(*cellar.StockBelowThresholdEvent)
	if !ok {
		h.logger.Warn("unexpected event type for low stock handler",
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	h.logger.Info("stock below threshold",
		zap.String("stock_item_key", thresholdEvent.Key.String()),
		zap.Uint64("available", thresholdEvent.Available.Uint64()),
		zap.Uint64("min_quantity", thresholdEvent.MinQuantity.Uint64()),
	)

	if h.notifier == nil {
		return nil
	}
	alert := LowStockAlert{
		Key:       thresholdEvent.Key,
		Available: thresholdEvent.Available,
		Threshold: thresholdEvent.MinQuantity,
	}
	if err := h.notifier.Notify(ctx, alert); err != nil {
		h.logger.Error("failed to deliver low stock alert",
			zap.String("stock_item_key", thresholdEvent.Key.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

var _ shared.EventHandler = (*LowStockHandler)(nil)
