package cellar

import (
	"context"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IntakeService drives the multi-step purchase receiving workflow on top
// of the stock ledger. Each receipt against an order updates the order
// line, the stock projection and the ledger in one transaction.
type IntakeService struct {
	scope            TransactionScope
	orderRepo        cellar.IntakeOrderRepository
	idempotencyStore shared.IdempotencyStore
	idempotencyCfg   shared.IdempotencyConfig
	eventPublisher   shared.EventPublisher
	logger           *zap.Logger
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(
	scope TransactionScope,
	orderRepo cellar.IntakeOrderRepository,
	idempotencyStore shared.IdempotencyStore,
	logger *zap.Logger,
) *IntakeService {
	return &IntakeService{
		scope:            scope,
		orderRepo:        orderRepo,
		idempotencyStore: idempotencyStore,
		idempotencyCfg:   shared.DefaultIdempotencyConfig(),
		logger:           logger,
	}
}

// SetEventPublisher sets the publisher for post-commit order events
func (s *IntakeService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyConfig overrides the dedup key retention settings
func (s *IntakeService) SetIdempotencyConfig(cfg shared.IdempotencyConfig) {
	s.idempotencyCfg = cfg
}

// CreateOrder opens a new intake order in the OPEN state
func (s *IntakeService) CreateOrder(ctx context.Context, req CreateIntakeOrderRequest) (*IntakeOrderResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, shared.ErrInvalidInput
	}

	specs := make([]cellar.IntakeLineSpec, 0, len(req.Lines))
	for _, line := range req.Lines {
		specs = append(specs, cellar.IntakeLineSpec{
			WineID:     line.WineID,
			VintageID:  line.VintageID,
			LocationID: line.LocationID,
			Quantity:   line.Quantity,
			UnitCost:   line.UnitCost,
		})
	}

	order, err := cellar.NewIntakeOrder(req.SupplierID, req.Reference, specs)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, order)
	response := ToIntakeOrderResponse(order)
	return &response, nil
}

// GetOrder returns an intake order with its lines
func (s *IntakeService) GetOrder(ctx context.Context, orderID uuid.UUID) (*IntakeOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToIntakeOrderResponse(order)
	return &response, nil
}

// ReceiveAgainstOrder books a receipt against one order line: the line's
// received quantity, the stock projection and the RECEIVE ledger entry all
// commit together. A repeated dedup key is rejected so replayed calls
// cannot double-count.
func (s *IntakeService) ReceiveAgainstOrder(ctx context.Context, req ReceiveAgainstOrderRequest) (*IntakeOrderResponse, error) {
	if err := validateRequest(req, req.Quantity); err != nil {
		return nil, err
	}

	if s.idempotencyStore != nil && s.idempotencyCfg.Enabled {
		processed, err := s.idempotencyStore.IsProcessed(ctx, req.DedupKey)
		if err != nil {
			return nil, err
		}
		if processed {
			return nil, shared.ErrDuplicateReceipt
		}
	}

	var order *cellar.IntakeOrder
	var item *cellar.StockItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.IntakeOrders().FindByID(ctx, req.OrderID)
		if err != nil {
			return err
		}

		line, err := order.ReceiveLine(req.LineID, req.Quantity)
		if err != nil {
			return err
		}

		item, err = repos.StockItems().GetOrCreate(ctx, line.StockItemKey())
		if err != nil {
			return err
		}
		unitCost := line.UnitCost
		if err = item.Receive(req.Quantity, &unitCost); err != nil {
			return err
		}

		entry, err := cellar.NewLedgerEntry(line.StockItemKey(), cellar.EntryTypeReceive, req.Quantity, req.ActorID)
		if err != nil {
			return err
		}
		entry.WithUnitCost(line.UnitCost).WithNotes("intake order " + order.Reference)

		if err = repos.IntakeOrders().SaveWithLock(ctx, order); err != nil {
			return err
		}
		if err = repos.StockItems().SaveWithLock(ctx, item); err != nil {
			return err
		}
		return repos.Ledger().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	if s.idempotencyStore != nil && s.idempotencyCfg.Enabled {
		if _, err := s.idempotencyStore.MarkProcessed(ctx, req.DedupKey, s.idempotencyCfg.TTL); err != nil {
			// The receipt is committed; a failed dedup write only narrows
			// future duplicate detection.
			s.logger.Warn("failed to record receipt dedup key",
				zap.String("dedup_key", req.DedupKey),
				zap.Error(err),
			)
		}
	}

	s.publishDomainEvents(ctx, order)
	s.publishStockEvents(ctx, item)
	response := ToIntakeOrderResponse(order)
	return &response, nil
}

// CancelOrder closes an order before completion. Bottles already received
// stay in stock; only the outstanding remainder is voided.
func (s *IntakeService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*IntakeOrderResponse, error) {
	var order *cellar.IntakeOrder
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.IntakeOrders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err = order.Cancel(); err != nil {
			return err
		}
		return repos.IntakeOrders().SaveWithLock(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, order)
	response := ToIntakeOrderResponse(order)
	return &response, nil
}

// publishDomainEvents publishes the order's pending events after commit
func (s *IntakeService) publishDomainEvents(ctx context.Context, order *cellar.IntakeOrder) {
	if s.eventPublisher == nil || order == nil {
		return
	}
	events := order.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish intake events", zap.Error(err))
	}
	order.ClearDomainEvents()
}

// publishStockEvents publishes the stock item's pending events after commit
func (s *IntakeService) publishStockEvents(ctx context.Context, item *cellar.StockItem) {
	if s.eventPublisher == nil || item == nil {
		return
	}
	events := item.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish stock events", zap.Error(err))
	}
	item.ClearDomainEvents()
}
