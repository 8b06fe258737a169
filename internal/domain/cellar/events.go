package cellar

import (
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeStockItem   = "StockItem"
	AggregateTypeIntakeOrder = "IntakeOrder"
)

// Event type constants
const (
	EventTypeStockChanged        = "StockChanged"
	EventTypeStockBelowThreshold = "StockBelowThreshold"
	EventTypeIntakeOrderCreated  = "IntakeOrderCreated"
	EventTypeIntakeLineReceived  = "IntakeLineReceived"
	EventTypeIntakeOrderClosed   = "IntakeOrderClosed"
)

// StockChangedEvent is raised on every successful mutation of a stock item.
// Real-time consumers (UI, alerting) subscribe to it; delivery is
// fire-and-forget and never rolls back the mutation.
type StockChangedEvent struct {
	shared.BaseDomainEvent
	Key       StockItemKey   `json:"stock_item_key"`
	EntryType EntryType      `json:"entry_type"`
	Projected ProjectedStock `json:"projected"`
}

// NewStockChangedEvent creates a new StockChangedEvent
func NewStockChangedEvent(item *StockItem, entryType EntryType) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockChanged, AggregateTypeStockItem, item.ID),
		Key:             item.Key(),
		EntryType:       entryType,
		Projected:       item.Projected(),
	}
}

// EventType returns the event type name
func (e *StockChangedEvent) EventType() string {
	return EventTypeStockChanged
}

// StockBelowThresholdEvent is raised when available stock for a holding
// drops below its configured minimum quantity
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	Key         StockItemKey `json:"stock_item_key"`
	Available   Quantity     `json:"available"`
	MinQuantity Quantity     `json:"min_quantity"`
}

// NewStockBelowThresholdEvent creates a new StockBelowThresholdEvent
func NewStockBelowThresholdEvent(item *StockItem) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, AggregateTypeStockItem, item.ID),
		Key:             item.Key(),
		Available:       item.Available(),
		MinQuantity:     item.MinQuantity,
	}
}

// EventType returns the event type name
func (e *StockBelowThresholdEvent) EventType() string {
	return EventTypeStockBelowThreshold
}

// IntakeOrderCreatedEvent is raised when a new intake order is opened
type IntakeOrderCreatedEvent struct {
	shared.BaseDomainEvent
	SupplierID uuid.UUID `json:"supplier_id"`
	Reference  string    `json:"reference"`
	LineCount  int       `json:"line_count"`
}

// NewIntakeOrderCreatedEvent creates a new IntakeOrderCreatedEvent
func NewIntakeOrderCreatedEvent(order *IntakeOrder) *IntakeOrderCreatedEvent {
	return &IntakeOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntakeOrderCreated, AggregateTypeIntakeOrder, order.ID),
		SupplierID:      order.SupplierID,
		Reference:       order.Reference,
		LineCount:       len(order.Lines),
	}
}

// EventType returns the event type name
func (e *IntakeOrderCreatedEvent) EventType() string {
	return EventTypeIntakeOrderCreated
}

// IntakeLineReceivedEvent is raised for every receipt booked against an
// intake order line
type IntakeLineReceivedEvent struct {
	shared.BaseDomainEvent
	LineID   uuid.UUID         `json:"line_id"`
	Quantity Quantity          `json:"quantity"`
	Status   IntakeOrderStatus `json:"status"`
}

// NewIntakeLineReceivedEvent creates a new IntakeLineReceivedEvent
func NewIntakeLineReceivedEvent(order *IntakeOrder, lineID uuid.UUID, quantity Quantity) *IntakeLineReceivedEvent {
	return &IntakeLineReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntakeLineReceived, AggregateTypeIntakeOrder, order.ID),
		LineID:          lineID,
		Quantity:        quantity,
		Status:          order.Status(),
	}
}

// EventType returns the event type name
func (e *IntakeLineReceivedEvent) EventType() string {
	return EventTypeIntakeLineReceived
}

// IntakeOrderClosedEvent is raised when an order reaches a terminal state,
// either COMPLETE or CANCELLED
type IntakeOrderClosedEvent struct {
	shared.BaseDomainEvent
	Status IntakeOrderStatus `json:"status"`
}

// NewIntakeOrderClosedEvent creates a new IntakeOrderClosedEvent
func NewIntakeOrderClosedEvent(order *IntakeOrder) *IntakeOrderClosedEvent {
	return &IntakeOrderClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntakeOrderClosed, AggregateTypeIntakeOrder, order.ID),
		Status:          order.Status(),
	}
}

// EventType returns the event type name
func (e *IntakeOrderClosedEvent) EventType() string {
	return EventTypeIntakeOrderClosed
}
