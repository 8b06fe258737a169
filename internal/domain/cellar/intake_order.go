package cellar

import (
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntakeOrderStatus represents the lifecycle state of an intake order
type IntakeOrderStatus string

const (
	IntakeOrderStatusOpen      IntakeOrderStatus = "OPEN"
	IntakeOrderStatusPartial   IntakeOrderStatus = "PARTIAL"
	IntakeOrderStatusComplete  IntakeOrderStatus = "COMPLETE"
	IntakeOrderStatusCancelled IntakeOrderStatus = "CANCELLED"
)

// String returns the string representation of IntakeOrderStatus
func (s IntakeOrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for states that accept no further receipts
func (s IntakeOrderStatus) IsTerminal() bool {
	return s == IntakeOrderStatusComplete || s == IntakeOrderStatusCancelled
}

// CanReceive returns true if receipts are allowed in this state
func (s IntakeOrderStatus) CanReceive() bool {
	return s == IntakeOrderStatusOpen || s == IntakeOrderStatusPartial
}

// CanCancel returns true if the order may still be cancelled
func (s IntakeOrderStatus) CanCancel() bool {
	return s == IntakeOrderStatusOpen || s == IntakeOrderStatusPartial
}

// IntakeOrderLine is one ordered wine-vintage position on an intake order
type IntakeOrderLine struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	WineID           uuid.UUID       `gorm:"type:uuid;not null"`
	VintageID        uuid.UUID       `gorm:"type:uuid;not null"`
	LocationID       uuid.UUID       `gorm:"type:uuid;not null"` // Destination location for received bottles
	OrderedQuantity  Quantity        `gorm:"type:bigint;not null"`
	ReceivedQuantity Quantity        `gorm:"type:bigint;not null;default:0"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntakeOrderLine) TableName() string {
	return "intake_order_lines"
}

// StockItemKey returns the stock holding this line receives into
func (l *IntakeOrderLine) StockItemKey() StockItemKey {
	return StockItemKey{WineID: l.WineID, VintageID: l.VintageID, LocationID: l.LocationID}
}

// Remaining returns the quantity still outstanding on this line
func (l *IntakeOrderLine) Remaining() Quantity {
	if l.ReceivedQuantity >= l.OrderedQuantity {
		return 0
	}
	return l.OrderedQuantity - l.ReceivedQuantity
}

// IsFullyReceived returns true if the ordered quantity has arrived in full
func (l *IntakeOrderLine) IsFullyReceived() bool {
	return l.ReceivedQuantity >= l.OrderedQuantity
}

// IntakeLineSpec describes one line when creating an intake order
type IntakeLineSpec struct {
	WineID     uuid.UUID
	VintageID  uuid.UUID
	LocationID uuid.UUID
	Quantity   Quantity
	UnitCost   decimal.Decimal
}

// IntakeOrder is the aggregate for the multi-step purchase receiving
// workflow. Its status is never stored as independent mutable state: it is
// derived from line receipt totals plus the cancelled flag, so order status
// and actual receipts cannot drift apart. The persisted status column is a
// query convenience written from the derivation on every save.
type IntakeOrder struct {
	shared.BaseAggregateRoot
	SupplierID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	Reference   string            `gorm:"type:varchar(100);not null;uniqueIndex"`
	StatusValue IntakeOrderStatus `gorm:"column:status;type:varchar(20);not null;index"`
	CancelledAt *time.Time        `gorm:"type:timestamptz"`
	Lines       []IntakeOrderLine `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (IntakeOrder) TableName() string {
	return "intake_orders"
}

// NewIntakeOrder creates an intake order in the OPEN state
func NewIntakeOrder(supplierID uuid.UUID, reference string, specs []IntakeLineSpec) (*IntakeOrder, error) {
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier ID cannot be empty")
	}
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Order reference cannot be empty")
	}
	if len(specs) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Intake order needs at least one line")
	}

	order := &IntakeOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SupplierID:        supplierID,
		Reference:         reference,
		Lines:             make([]IntakeOrderLine, 0, len(specs)),
	}

	now := time.Now()
	for _, spec := range specs {
		key := StockItemKey{WineID: spec.WineID, VintageID: spec.VintageID, LocationID: spec.LocationID}
		if !key.IsValid() {
			return nil, shared.NewDomainError("INVALID_STOCK_ITEM_KEY", "Wine, vintage and location IDs are required")
		}
		if spec.Quantity.IsZero() {
			return nil, shared.ErrInvalidQuantity
		}
		if spec.UnitCost.IsNegative() {
			return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
		}
		order.Lines = append(order.Lines, IntakeOrderLine{
			ID:              uuid.New(),
			OrderID:         order.ID,
			WineID:          spec.WineID,
			VintageID:       spec.VintageID,
			LocationID:      spec.LocationID,
			OrderedQuantity: spec.Quantity,
			UnitCost:        spec.UnitCost,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	order.StatusValue = order.Status()
	order.AddDomainEvent(NewIntakeOrderCreatedEvent(order))
	return order, nil
}

// Status derives the order state purely from line receipt totals and the
// cancelled flag.
func (o *IntakeOrder) Status() IntakeOrderStatus {
	if o.CancelledAt != nil {
		return IntakeOrderStatusCancelled
	}

	allReceived := true
	anyReceived := false
	for i := range o.Lines {
		if o.Lines[i].ReceivedQuantity > 0 {
			anyReceived = true
		}
		if !o.Lines[i].IsFullyReceived() {
			allReceived = false
		}
	}

	switch {
	case allReceived:
		return IntakeOrderStatusComplete
	case anyReceived:
		return IntakeOrderStatusPartial
	default:
		return IntakeOrderStatusOpen
	}
}

// Line returns the line with the given ID
func (o *IntakeOrder) Line(lineID uuid.UUID) (*IntakeOrderLine, error) {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// ReceiveLine books a receipt against one line. The quantity must not
// exceed the line's outstanding remainder.
func (o *IntakeOrder) ReceiveLine(lineID uuid.UUID, quantity Quantity) (*IntakeOrderLine, error) {
	if quantity.IsZero() {
		return nil, shared.ErrInvalidQuantity
	}
	if !o.Status().CanReceive() {
		return nil, shared.ErrInvalidState
	}

	line, err := o.Line(lineID)
	if err != nil {
		return nil, err
	}
	if quantity > line.Remaining() {
		return nil, shared.ErrOverReceipt
	}

	line.ReceivedQuantity = line.ReceivedQuantity.Add(quantity)
	line.UpdatedAt = time.Now()
	o.StatusValue = o.Status()
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	o.AddDomainEvent(NewIntakeLineReceivedEvent(o, lineID, quantity))
	if o.Status() == IntakeOrderStatusComplete {
		o.AddDomainEvent(NewIntakeOrderClosedEvent(o))
	}
	return line, nil
}

// Cancel closes the order before it completes. Allowed from OPEN and
// PARTIAL only; bottles already received stay in stock.
func (o *IntakeOrder) Cancel() error {
	if !o.Status().CanCancel() {
		return shared.ErrInvalidState
	}

	now := time.Now()
	o.CancelledAt = &now
	o.StatusValue = o.Status()
	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewIntakeOrderClosedEvent(o))
	return nil
}
