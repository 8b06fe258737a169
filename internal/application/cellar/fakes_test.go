package cellar

import (
	"context"
	"sync"
	"time"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// fakeStockItemRepository is an in-memory StockItemRepository for service
// tests. saveLockErr, when set, makes every SaveWithLock fail with it.
type fakeStockItemRepository struct {
	mu          sync.Mutex
	items       map[cellar.StockItemKey]*cellar.StockItem
	saveLockErr error
	saveCalls   int
}

func newFakeStockItemRepository() *fakeStockItemRepository {
	return &fakeStockItemRepository{items: make(map[cellar.StockItemKey]*cellar.StockItem)}
}

func (r *fakeStockItemRepository) FindByID(_ context.Context, id uuid.UUID) (*cellar.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeStockItemRepository) FindByKey(_ context.Context, key cellar.StockItemKey) (*cellar.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return item, nil
}

func (r *fakeStockItemRepository) GetOrCreate(_ context.Context, key cellar.StockItemKey) (*cellar.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[key]; ok {
		return item, nil
	}
	item, err := cellar.NewStockItem(key)
	if err != nil {
		return nil, err
	}
	r.items[key] = item
	return item, nil
}

func (r *fakeStockItemRepository) FindAll(_ context.Context, filter shared.Filter) ([]cellar.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]cellar.StockItem, 0, len(r.items))
	for _, item := range r.items {
		if locationID, ok := filter.Filters["location_id"].(uuid.UUID); ok && item.LocationID != locationID {
			continue
		}
		if wineID, ok := filter.Filters["wine_id"].(uuid.UUID); ok && item.WineID != wineID {
			continue
		}
		result = append(result, *item)
	}
	return result, nil
}

func (r *fakeStockItemRepository) FindBelowThreshold(_ context.Context, threshold cellar.Quantity, locationID *uuid.UUID) ([]cellar.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cellar.StockItem
	for _, item := range r.items {
		if locationID != nil && item.LocationID != *locationID {
			continue
		}
		if threshold.IsZero() {
			if item.IsBelowThreshold() {
				result = append(result, *item)
			}
		} else if item.Available() < threshold {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (r *fakeStockItemRepository) FindWithReservations(_ context.Context) ([]cellar.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cellar.StockItem
	for _, item := range r.items {
		if item.Reserved > 0 {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (r *fakeStockItemRepository) Save(_ context.Context, item *cellar.StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.Key()] = item
	return nil
}

func (r *fakeStockItemRepository) SaveWithLock(_ context.Context, item *cellar.StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.saveLockErr != nil {
		return r.saveLockErr
	}
	r.items[item.Key()] = item
	return nil
}

func (r *fakeStockItemRepository) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

// fakeLedgerRepository is an in-memory append-only ledger
type fakeLedgerRepository struct {
	mu        sync.Mutex
	entries   []cellar.LedgerEntry
	appendErr error
}

func newFakeLedgerRepository() *fakeLedgerRepository {
	return &fakeLedgerRepository{}
}

func (r *fakeLedgerRepository) Append(_ context.Context, entries ...*cellar.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	for _, entry := range entries {
		r.entries = append(r.entries, *entry)
	}
	return nil
}

func (r *fakeLedgerRepository) FindByKey(_ context.Context, key cellar.StockItemKey) ([]cellar.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cellar.LedgerEntry
	for _, entry := range r.entries {
		if entry.Key() == key {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeLedgerRepository) FindByKeyInRange(_ context.Context, key cellar.StockItemKey, from, to time.Time) ([]cellar.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cellar.LedgerEntry
	for _, entry := range r.entries {
		if entry.Key() != key {
			continue
		}
		if !from.IsZero() && entry.RecordedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.RecordedAt.After(to) {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

func (r *fakeLedgerRepository) FindByRelatedEntryID(_ context.Context, relatedID uuid.UUID) ([]cellar.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cellar.LedgerEntry
	for _, entry := range r.entries {
		if entry.RelatedEntryID != nil && *entry.RelatedEntryID == relatedID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeLedgerRepository) CountByKey(_ context.Context, key cellar.StockItemKey) (int64, error) {
	entries, _ := r.FindByKey(context.Background(), key)
	return int64(len(entries)), nil
}

func (r *fakeLedgerRepository) entriesOfType(entryType cellar.EntryType) []cellar.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cellar.LedgerEntry
	for _, entry := range r.entries {
		if entry.EntryType == entryType {
			result = append(result, entry)
		}
	}
	return result
}

// fakeIntakeOrderRepository is an in-memory IntakeOrderRepository
type fakeIntakeOrderRepository struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]*cellar.IntakeOrder
	saveLockErr error
}

func newFakeIntakeOrderRepository() *fakeIntakeOrderRepository {
	return &fakeIntakeOrderRepository{orders: make(map[uuid.UUID]*cellar.IntakeOrder)}
}

func (r *fakeIntakeOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*cellar.IntakeOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return order, nil
}

func (r *fakeIntakeOrderRepository) FindByReference(_ context.Context, reference string) (*cellar.IntakeOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.Reference == reference {
			return order, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeIntakeOrderRepository) FindByStatus(_ context.Context, status cellar.IntakeOrderStatus, _ shared.Filter) ([]cellar.IntakeOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cellar.IntakeOrder
	for _, order := range r.orders {
		if order.Status() == status {
			result = append(result, *order)
		}
	}
	return result, nil
}

func (r *fakeIntakeOrderRepository) Save(_ context.Context, order *cellar.IntakeOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *fakeIntakeOrderRepository) SaveWithLock(_ context.Context, order *cellar.IntakeOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveLockErr != nil {
		return r.saveLockErr
	}
	r.orders[order.ID] = order
	return nil
}

// capturingPublisher records every published event
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) published() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.DomainEvent(nil), p.events...)
}

var (
	_ cellar.StockItemRepository   = (*fakeStockItemRepository)(nil)
	_ cellar.LedgerEntryRepository = (*fakeLedgerRepository)(nil)
	_ cellar.IntakeOrderRepository = (*fakeIntakeOrderRepository)(nil)
	_ shared.EventPublisher        = (*capturingPublisher)(nil)
)
