package cellar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationSweepService releases reservations whose expiry has passed.
// The sweep works purely on the ledger: a RESERVE entry with an expiry is
// outstanding until a RELEASE links back to it. Expired outstanding
// reservations are released through the ordinary guarded path, so sweeps
// contend with live mutations like any other caller and lose conflicts
// gracefully.
type ReservationSweepService struct {
	stockRepo    cellar.StockItemRepository
	ledgerRepo   cellar.LedgerEntryRepository
	stockService *StockService
	actorID      uuid.UUID
	logger       *zap.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// SweepStats summarizes one sweep pass
type SweepStats struct {
	ItemsScanned  int       `json:"items_scanned"`
	Released      int       `json:"released"`
	Conflicts     int       `json:"conflicts"`
	Failures      int       `json:"failures"`
	ProcessedAt   time.Time `json:"processed_at"`
	TotalReleased uint64    `json:"total_released"`
}

// NewReservationSweepService creates a new ReservationSweepService.
// actorID identifies the sweeper in the ledger entries it appends.
func NewReservationSweepService(
	stockRepo cellar.StockItemRepository,
	ledgerRepo cellar.LedgerEntryRepository,
	stockService *StockService,
	actorID uuid.UUID,
	logger *zap.Logger,
) *ReservationSweepService {
	return &ReservationSweepService{
		stockRepo:    stockRepo,
		ledgerRepo:   ledgerRepo,
		stockService: stockService,
		actorID:      actorID,
		logger:       logger,
	}
}

// ReleaseExpired runs one sweep pass over all holdings with reserved stock
func (s *ReservationSweepService) ReleaseExpired(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{ProcessedAt: time.Now()}

	items, err := s.stockRepo.FindWithReservations(ctx)
	if err != nil {
		s.logger.Error("failed to list holdings with reservations", zap.Error(err))
		return nil, err
	}
	stats.ItemsScanned = len(items)

	now := time.Now()
	for i := range items {
		item := &items[i]
		if err := s.sweepItem(ctx, item, now, stats); err != nil {
			stats.Failures++
			s.logger.Error("reservation sweep failed for holding",
				zap.String("stock_item_key", item.Key().String()),
				zap.Error(err),
			)
		}
	}

	if stats.Released > 0 || stats.Conflicts > 0 {
		s.logger.Info("reservation sweep finished",
			zap.Int("items_scanned", stats.ItemsScanned),
			zap.Int("released", stats.Released),
			zap.Int("conflicts", stats.Conflicts),
			zap.Uint64("total_released", stats.TotalReleased),
		)
	}
	return stats, nil
}

// sweepItem releases every expired outstanding reservation on one holding
func (s *ReservationSweepService) sweepItem(ctx context.Context, item *cellar.StockItem, now time.Time, stats *SweepStats) error {
	entries, err := s.ledgerRepo.FindByKey(ctx, item.Key())
	if err != nil {
		return err
	}

	// Each successful release shrinks the pool, so the cap has to track it
	// across reservations rather than reuse the snapshot loaded before the loop.
	reserved := item.Reserved
	for _, reservation := range expiredOutstanding(entries, now) {
		quantity := reservation.Quantity
		if quantity > reserved {
			// Consumption against reserved stock shrank the pool below the
			// per-reservation bookkeeping; release what is actually held.
			quantity = reserved
		}
		if quantity.IsZero() {
			continue
		}

		reservationID := reservation.ID
		_, err := s.stockService.Release(ctx, ReleaseRequest{
			WineID:             item.WineID,
			VintageID:          item.VintageID,
			LocationID:         item.LocationID,
			Quantity:           quantity,
			ReservationEntryID: &reservationID,
			ActorID:            s.actorID,
			Notes:              "expired reservation sweep",
		})
		if err != nil {
			if errors.Is(err, shared.ErrStaleState) {
				// A live mutation won the race; the next pass picks the
				// reservation up again.
				stats.Conflicts++
				continue
			}
			return err
		}
		stats.Released++
		stats.TotalReleased += quantity.Uint64()
		reserved -= quantity
	}
	return nil
}

// expiredOutstanding returns the RESERVE entries whose expiry has passed
// and that no RELEASE entry links back to
func expiredOutstanding(entries []cellar.LedgerEntry, now time.Time) []cellar.LedgerEntry {
	released := make(map[uuid.UUID]struct{})
	for i := range entries {
		e := &entries[i]
		if e.EntryType == cellar.EntryTypeRelease && e.RelatedEntryID != nil {
			released[*e.RelatedEntryID] = struct{}{}
		}
	}

	var expired []cellar.LedgerEntry
	for i := range entries {
		e := &entries[i]
		if e.EntryType != cellar.EntryTypeReserve || !e.IsExpired(now) {
			continue
		}
		if _, ok := released[e.ID]; ok {
			continue
		}
		expired = append(expired, *e)
	}
	return expired
}

// Start runs the sweep loop until Stop is called or the context ends
func (s *ReservationSweepService) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopChan != nil {
		return
	}
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.ReleaseExpired(ctx); err != nil {
					s.logger.Error("reservation sweep pass failed", zap.Error(err))
				}
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweep loop and waits for the running pass to finish
func (s *ReservationSweepService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopChan == nil {
		return
	}
	close(s.stopChan)
	s.wg.Wait()
	s.stopChan = nil
}
