package cellar

import (
	"context"
	"time"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AdjustAuthorizer decides whether an actor may post manual adjustments.
// Authorization policy belongs to collaborators; the default allows all.
type AdjustAuthorizer func(ctx context.Context, actorID string) error

// StockService implements the mutation operations and read queries over
// the stock ledger. Every mutation follows the same shape: validate the
// request, snapshot the current projection, apply the business rule on the
// aggregate, then persist the projection update and the ledger append as
// one transaction guarded by the aggregate version. A concurrent mutation
// on the same key loses the version race and surfaces shared.ErrStaleState;
// the caller retries with a fresh snapshot.
type StockService struct {
	scope             TransactionScope
	stockRepo         cellar.StockItemRepository
	ledgerRepo        cellar.LedgerEntryRepository
	eventPublisher    shared.EventPublisher
	authorizeAdjust   AdjustAuthorizer
	defaultReserveTTL time.Duration
	logger            *zap.Logger
}

// NewStockService creates a new StockService
func NewStockService(
	scope TransactionScope,
	stockRepo cellar.StockItemRepository,
	ledgerRepo cellar.LedgerEntryRepository,
	logger *zap.Logger,
) *StockService {
	return &StockService{
		scope:      scope,
		stockRepo:  stockRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// SetEventPublisher sets the publisher for post-commit change events
func (s *StockService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAdjustAuthorizer installs the authorization hook for manual adjustments
func (s *StockService) SetAdjustAuthorizer(authorizer AdjustAuthorizer) {
	s.authorizeAdjust = authorizer
}

// SetDefaultReserveTTL sets the expiry applied to reservations whose
// request carries no TTL of its own. Zero leaves them open-ended.
func (s *StockService) SetDefaultReserveTTL(ttl time.Duration) {
	s.defaultReserveTTL = ttl
}

// validateRequest applies the quantity rule first so a malformed quantity
// is reported as such, then the remaining struct constraints.
func validateRequest(req interface{}, quantity cellar.Quantity) error {
	if quantity.IsZero() {
		return shared.ErrInvalidQuantity
	}
	if err := validate.Struct(req); err != nil {
		return shared.ErrInvalidInput
	}
	return nil
}

// Receive books bottles into a stock holding, creating the holding on
// first receipt.
func (s *StockService) Receive(ctx context.Context, req ReceiveRequest) (*StockItemResponse, error) {
	if err := validateRequest(req, req.Quantity); err != nil {
		return nil, err
	}

	var item *cellar.StockItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.StockItems().GetOrCreate(ctx, req.Key())
		if err != nil {
			return err
		}
		if err = item.Receive(req.Quantity, req.UnitCost); err != nil {
			return err
		}

		entry, err := cellar.NewLedgerEntry(req.Key(), cellar.EntryTypeReceive, req.Quantity, req.ActorID)
		if err != nil {
			return err
		}
		if req.UnitCost != nil {
			entry.WithUnitCost(*req.UnitCost)
		}
		if req.Notes != "" {
			entry.WithNotes(req.Notes)
		}

		if err = repos.StockItems().SaveWithLock(ctx, item); err != nil {
			return err
		}
		return repos.Ledger().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)
	response := ToStockItemResponse(item)
	return &response, nil
}

// Consume removes bottles from a stock holding. The request fails with
// ErrInsufficientStock when the projection does not cover the quantity;
// nothing is appended in that case.
func (s *StockService) Consume(ctx context.Context, req ConsumeRequest) (*StockItemResponse, error) {
	if err := validateRequest(req, req.Quantity); err != nil {
		return nil, err
	}

	var item *cellar.StockItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.StockItems().GetOrCreate(ctx, req.Key())
		if err != nil {
			return err
		}
		if err = item.Consume(req.Quantity, req.AgainstReserved); err != nil {
			return err
		}

		entry, err := cellar.NewLedgerEntry(req.Key(), cellar.EntryTypeConsume, req.Quantity, req.ActorID)
		if err != nil {
			return err
		}
		if req.AgainstReserved {
			entry.WithAgainstReserved()
		}
		if req.Notes != "" {
			entry.WithNotes(req.Notes)
		}

		if err = repos.StockItems().SaveWithLock(ctx, item); err != nil {
			return err
		}
		return repos.Ledger().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)
	response := ToStockItemResponse(item)
	return &response, nil
}

// Move transfers bottles between two locations as a paired
// MOVE_OUT/MOVE_IN, appended atomically: a failure on either leg leaves
// both ledgers untouched. Writes are ordered lexicographically on the key
// so two crossing moves over the same pair cannot deadlock.
func (s *StockService) Move(ctx context.Context, req MoveRequest) (*MoveResponse, error) {
	if err := validateRequest(req, req.Quantity); err != nil {
		return nil, err
	}
	if req.FromLocationID == req.ToLocationID {
		return nil, shared.ErrSameLocation
	}

	var fromItem, toItem *cellar.StockItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		fromItem, err = repos.StockItems().GetOrCreate(ctx, req.FromKey())
		if err != nil {
			return err
		}
		toItem, err = repos.StockItems().GetOrCreate(ctx, req.ToKey())
		if err != nil {
			return err
		}

		if err = fromItem.MoveOut(req.Quantity); err != nil {
			return err
		}
		if err = toItem.MoveIn(req.Quantity); err != nil {
			return err
		}

		outEntry, err := cellar.NewLedgerEntry(req.FromKey(), cellar.EntryTypeMoveOut, req.Quantity, req.ActorID)
		if err != nil {
			return err
		}
		inEntry, err := cellar.NewLedgerEntry(req.ToKey(), cellar.EntryTypeMoveIn, req.Quantity, req.ActorID)
		if err != nil {
			return err
		}
		outEntry.WithRelatedEntryID(inEntry.ID)
		inEntry.WithRelatedEntryID(outEntry.ID)
		if req.Notes != "" {
			outEntry.WithNotes(req.Notes)
			inEntry.WithNotes(req.Notes)
		}

		// Fixed global write order prevents deadlock between two moves
		// crossing the same pair of locations in opposite directions.
		first, second := fromItem, toItem
		if second.Key().Less(first.Key()) {
			first, second = second, first
		}
		if err = repos.StockItems().SaveWithLock(ctx, first); err != nil {
			return err
		}
		if err = repos.StockItems().SaveWithLock(ctx, second); err != nil {
			return err
		}
		return repos.Ledger().Append(ctx, outEntry, inEntry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, fromItem)
	s.publishDomainEvents(ctx, toItem)
	return &MoveResponse{From: ToStockItemResponse(fromItem), To: ToStockItemResponse(toItem)}, nil
}

// Reserve sets bottles aside for a pending purpose. With a TTL the
// reservation is swept back to availability after it expires.
func (s *StockService) Reserve(ctx context.Context, req ReserveRequest) (*StockItemResponse, error) {
	if err := validateRequest(req, req.Quantity); err != nil {
		return nil, err
	}

	var item *cellar.StockItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.StockItems().GetOrCreate(ctx, req.Key())
		if err != nil {
			return err
		}
		if err = item.Reserve(req.Quantity); err != nil {
			return err
		}

		entry, err := cellar.NewLedgerEntry(req.Key(), cellar.EntryTypeReserve, req.Quantity, req.ActorID)
		if err != nil {
			return err
		}
		ttl := req.TTL
		if ttl == 0 {
			ttl = s.defaultReserveTTL
		}
		if ttl > 0 {
			entry.WithExpiresAt(time.Now().Add(ttl))
		}
		if req.Notes != "" {
			entry.WithNotes(req.Notes)
		}

		if err = repos.StockItems().SaveWithLock(ctx, item); err != nil {
			return err
		}
		return repos.Ledger().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)
	response := ToStockItemResponse(item)
	return &response, nil
}

// Release returns reserved bottles to availability
func (s *StockService) Release(ctx context.Context, req ReleaseRequest) (*StockItemResponse, error) {
	if err := validateRequest(req, req.Quantity); err != nil {
		return nil, err
	}

	var item *cellar.StockItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.StockItems().GetOrCreate(ctx, req.Key())
		if err != nil {
			return err
		}
		if err = item.Release(req.Quantity); err != nil {
			return err
		}

		entry, err := cellar.NewLedgerEntry(req.Key(), cellar.EntryTypeRelease, req.Quantity, req.ActorID)
		if err != nil {
			return err
		}
		if req.ReservationEntryID != nil {
			entry.WithRelatedEntryID(*req.ReservationEntryID)
		}
		if req.Notes != "" {
			entry.WithNotes(req.Notes)
		}

		if err = repos.StockItems().SaveWithLock(ctx, item); err != nil {
			return err
		}
		return repos.Ledger().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)
	response := ToStockItemResponse(item)
	return &response, nil
}

// Adjust posts a manual audit correction. Authorization is a collaborator
// policy; the installed hook runs before anything touches the ledger.
func (s *StockService) Adjust(ctx context.Context, req AdjustRequest) (*StockItemResponse, error) {
	if err := validateRequest(req, req.Quantity); err != nil {
		return nil, err
	}
	if s.authorizeAdjust != nil {
		if err := s.authorizeAdjust(ctx, req.ActorID.String()); err != nil {
			return nil, err
		}
	}

	var item *cellar.StockItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.StockItems().GetOrCreate(ctx, req.Key())
		if err != nil {
			return err
		}
		if err = item.Adjust(req.Direction, req.Quantity); err != nil {
			return err
		}

		entry, err := cellar.NewLedgerEntry(req.Key(), cellar.EntryTypeAdjust, req.Quantity, req.ActorID)
		if err != nil {
			return err
		}
		entry.WithDirection(req.Direction).WithNotes(req.Reason)

		if err = repos.StockItems().SaveWithLock(ctx, item); err != nil {
			return err
		}
		return repos.Ledger().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)
	response := ToStockItemResponse(item)
	return &response, nil
}

// SetThreshold sets the low-stock alert threshold for one holding.
// Thresholds are configuration, not stock movement, so no ledger entry is
// written.
func (s *StockService) SetThreshold(ctx context.Context, req SetThresholdRequest) (*StockItemResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, shared.ErrInvalidInput
	}

	var item *cellar.StockItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.StockItems().GetOrCreate(ctx, req.Key())
		if err != nil {
			return err
		}
		item.SetMinQuantity(req.MinQuantity)
		return repos.StockItems().SaveWithLock(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	response := ToStockItemResponse(item)
	return &response, nil
}

// GetStock returns stock holdings and their projections, optionally
// narrowed by location, wine or vintage.
func (s *StockService) GetStock(ctx context.Context, filter StockFilter) ([]StockItemResponse, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.LocationID != nil {
		domainFilter.Filters["location_id"] = *filter.LocationID
	}
	if filter.WineID != nil {
		domainFilter.Filters["wine_id"] = *filter.WineID
	}
	if filter.VintageID != nil {
		domainFilter.Filters["vintage_id"] = *filter.VintageID
	}

	items, err := s.stockRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToStockItemResponses(items), nil
}

// GetByKey returns the projection for one stock holding
func (s *StockService) GetByKey(ctx context.Context, key cellar.StockItemKey) (*StockItemResponse, error) {
	item, err := s.stockRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	response := ToStockItemResponse(item)
	return &response, nil
}

// GetLedgerHistory returns the entry history for a stock holding within a
// time range, in recorded order. Zero times mean an unbounded range.
func (s *StockService) GetLedgerHistory(ctx context.Context, key cellar.StockItemKey, from, to time.Time) ([]LedgerEntryResponse, error) {
	if from.IsZero() && to.IsZero() {
		entries, err := s.ledgerRepo.FindByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		return ToLedgerEntryResponses(entries), nil
	}

	entries, err := s.ledgerRepo.FindByKeyInRange(ctx, key, from, to)
	if err != nil {
		return nil, err
	}
	return ToLedgerEntryResponses(entries), nil
}

// RebuildProjection recomputes a holding's projection by full ledger
// replay and rewrites the cache from it. The cache is disposable; this is
// the recovery path when it is suspected of drift, and it also verifies
// the replay-equals-cache equivalence.
func (s *StockService) RebuildProjection(ctx context.Context, key cellar.StockItemKey) (*StockItemResponse, error) {
	var item *cellar.StockItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.StockItems().GetOrCreate(ctx, key)
		if err != nil {
			return err
		}

		entries, err := repos.Ledger().FindByKey(ctx, key)
		if err != nil {
			return err
		}
		projected, err := cellar.Replay(entries)
		if err != nil {
			// A ledger that cannot replay means the validation layer and
			// the ledger have diverged.
			s.logger.Error("ledger replay violated projection invariants",
				zap.String("stock_item_key", key.String()),
				zap.Error(err),
			)
			return err
		}

		if projected != item.Projected() {
			s.logger.Warn("projection cache drifted from ledger replay",
				zap.String("stock_item_key", key.String()),
				zap.Uint64("cached_on_hand", item.OnHand.Uint64()),
				zap.Uint64("replayed_on_hand", projected.OnHand.Uint64()),
			)
		}

		item.OnHand = projected.OnHand
		item.Reserved = projected.Reserved
		item.UpdatedAt = time.Now()
		item.IncrementVersion()
		return repos.StockItems().SaveWithLock(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	response := ToStockItemResponse(item)
	return &response, nil
}

// publishDomainEvents publishes the aggregate's pending events after a
// successful commit. Publish failures are logged, never propagated: change
// notification is fire-and-forget and must not roll back a mutation.
func (s *StockService) publishDomainEvents(ctx context.Context, item *cellar.StockItem) {
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
