package cellar

import (
	"time"

	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// validate checks request structs at the application boundary. This core
// has no HTTP layer, so struct validation runs here instead of in binding.
var validate = validator.New()

// ReceiveRequest books bottles into a stock holding
type ReceiveRequest struct {
	WineID     uuid.UUID        `validate:"required"`
	VintageID  uuid.UUID        `validate:"required"`
	LocationID uuid.UUID        `validate:"required"`
	Quantity   cellar.Quantity  `validate:"required,gt=0"`
	UnitCost   *decimal.Decimal `validate:"omitempty"`
	ActorID    uuid.UUID        `validate:"required"`
	Notes      string           `validate:"max=500"`
}

// Key returns the stock item key for the request
func (r ReceiveRequest) Key() cellar.StockItemKey {
	return cellar.NewStockItemKey(r.WineID, r.VintageID, r.LocationID)
}

// ConsumeRequest removes bottles from a stock holding. AgainstReserved
// draws the bottles from a standing reservation instead of free stock.
type ConsumeRequest struct {
	WineID          uuid.UUID       `validate:"required"`
	VintageID       uuid.UUID       `validate:"required"`
	LocationID      uuid.UUID       `validate:"required"`
	Quantity        cellar.Quantity `validate:"required,gt=0"`
	AgainstReserved bool
	ActorID         uuid.UUID `validate:"required"`
	Notes           string    `validate:"max=500"`
}

// Key returns the stock item key for the request
func (r ConsumeRequest) Key() cellar.StockItemKey {
	return cellar.NewStockItemKey(r.WineID, r.VintageID, r.LocationID)
}

// MoveRequest transfers bottles of one wine-vintage between two locations
type MoveRequest struct {
	WineID         uuid.UUID       `validate:"required"`
	VintageID      uuid.UUID       `validate:"required"`
	FromLocationID uuid.UUID       `validate:"required"`
	ToLocationID   uuid.UUID       `validate:"required"`
	Quantity       cellar.Quantity `validate:"required,gt=0"`
	ActorID        uuid.UUID       `validate:"required"`
	Notes          string          `validate:"max=500"`
}

// FromKey returns the source stock item key
func (r MoveRequest) FromKey() cellar.StockItemKey {
	return cellar.NewStockItemKey(r.WineID, r.VintageID, r.FromLocationID)
}

// ToKey returns the destination stock item key
func (r MoveRequest) ToKey() cellar.StockItemKey {
	return cellar.NewStockItemKey(r.WineID, r.VintageID, r.ToLocationID)
}

// ReserveRequest sets bottles aside. A zero TTL falls back to the
// service default; with no default the reservation never expires on
// its own.
type ReserveRequest struct {
	WineID     uuid.UUID       `validate:"required"`
	VintageID  uuid.UUID       `validate:"required"`
	LocationID uuid.UUID       `validate:"required"`
	Quantity   cellar.Quantity `validate:"required,gt=0"`
	TTL        time.Duration   `validate:"min=0"`
	ActorID    uuid.UUID       `validate:"required"`
	Notes      string          `validate:"max=500"`
}

// Key returns the stock item key for the request
func (r ReserveRequest) Key() cellar.StockItemKey {
	return cellar.NewStockItemKey(r.WineID, r.VintageID, r.LocationID)
}

// ReleaseRequest returns reserved bottles to availability.
// ReservationEntryID optionally links the release to the RESERVE entry it
// cancels.
type ReleaseRequest struct {
	WineID             uuid.UUID       `validate:"required"`
	VintageID          uuid.UUID       `validate:"required"`
	LocationID         uuid.UUID       `validate:"required"`
	Quantity           cellar.Quantity `validate:"required,gt=0"`
	ReservationEntryID *uuid.UUID
	ActorID            uuid.UUID `validate:"required"`
	Notes              string    `validate:"max=500"`
}

// Key returns the stock item key for the request
func (r ReleaseRequest) Key() cellar.StockItemKey {
	return cellar.NewStockItemKey(r.WineID, r.VintageID, r.LocationID)
}

// AdjustRequest applies a manual audit correction. The magnitude is always
// positive; the sign lives in Direction. Reason is mandatory because
// adjustments exist only for audit corrections.
type AdjustRequest struct {
	WineID     uuid.UUID              `validate:"required"`
	VintageID  uuid.UUID              `validate:"required"`
	LocationID uuid.UUID              `validate:"required"`
	Direction  cellar.AdjustDirection `validate:"required,oneof=INCREASE DECREASE"`
	Quantity   cellar.Quantity        `validate:"required,gt=0"`
	Reason     string                 `validate:"required,max=500"`
	ActorID    uuid.UUID              `validate:"required"`
}

// Key returns the stock item key for the request
func (r AdjustRequest) Key() cellar.StockItemKey {
	return cellar.NewStockItemKey(r.WineID, r.VintageID, r.LocationID)
}

// SetThresholdRequest sets the low-stock alert threshold for one holding
type SetThresholdRequest struct {
	WineID      uuid.UUID `validate:"required"`
	VintageID   uuid.UUID `validate:"required"`
	LocationID  uuid.UUID `validate:"required"`
	MinQuantity cellar.Quantity
}

// Key returns the stock item key for the request
func (r SetThresholdRequest) Key() cellar.StockItemKey {
	return cellar.NewStockItemKey(r.WineID, r.VintageID, r.LocationID)
}

// StockFilter narrows stock listings
type StockFilter struct {
	LocationID *uuid.UUID
	WineID     *uuid.UUID
	VintageID  *uuid.UUID
	Page       int
	PageSize   int
}

// StockItemResponse is the external view of one stock holding
type StockItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	WineID      uuid.UUID       `json:"wine_id"`
	VintageID   uuid.UUID       `json:"vintage_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	OnHand      cellar.Quantity `json:"on_hand"`
	Reserved    cellar.Quantity `json:"reserved"`
	Available   cellar.Quantity `json:"available"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	MinQuantity cellar.Quantity `json:"min_quantity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToStockItemResponse maps a stock item to its external view
func ToStockItemResponse(item *cellar.StockItem) StockItemResponse {
	return StockItemResponse{
		ID:          item.ID,
		WineID:      item.WineID,
		VintageID:   item.VintageID,
		LocationID:  item.LocationID,
		OnHand:      item.OnHand,
		Reserved:    item.Reserved,
		Available:   item.Available(),
		UnitCost:    item.UnitCost,
		MinQuantity: item.MinQuantity,
		UpdatedAt:   item.UpdatedAt,
	}
}

// ToStockItemResponses maps a slice of stock items
func ToStockItemResponses(items []cellar.StockItem) []StockItemResponse {
	responses := make([]StockItemResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToStockItemResponse(&items[i]))
	}
	return responses
}

// LedgerEntryResponse is the external view of one ledger entry
type LedgerEntryResponse struct {
	ID              uuid.UUID        `json:"id"`
	WineID          uuid.UUID        `json:"wine_id"`
	VintageID       uuid.UUID        `json:"vintage_id"`
	LocationID      uuid.UUID        `json:"location_id"`
	EntryType       cellar.EntryType `json:"entry_type"`
	Quantity        cellar.Quantity  `json:"quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	Direction       string           `json:"direction,omitempty"`
	AgainstReserved bool             `json:"against_reserved,omitempty"`
	ActorID         uuid.UUID        `json:"actor_id"`
	Notes           string           `json:"notes,omitempty"`
	RelatedEntryID  *uuid.UUID       `json:"related_entry_id,omitempty"`
	RecordedAt      time.Time        `json:"recorded_at"`
}

// ToLedgerEntryResponse maps a ledger entry to its external view
func ToLedgerEntryResponse(entry *cellar.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:              entry.ID,
		WineID:          entry.WineID,
		VintageID:       entry.VintageID,
		LocationID:      entry.LocationID,
		EntryType:       entry.EntryType,
		Quantity:        entry.Quantity,
		UnitCost:        entry.UnitCost,
		Direction:       string(entry.Direction),
		AgainstReserved: entry.AgainstReserved,
		ActorID:         entry.ActorID,
		Notes:           entry.Notes,
		RelatedEntryID:  entry.RelatedEntryID,
		RecordedAt:      entry.RecordedAt,
	}
}

// ToLedgerEntryResponses maps a slice of ledger entries
func ToLedgerEntryResponses(entries []cellar.LedgerEntry) []LedgerEntryResponse {
	responses := make([]LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, ToLedgerEntryResponse(&entries[i]))
	}
	return responses
}

// MoveResponse carries both sides of a completed transfer
type MoveResponse struct {
	From StockItemResponse `json:"from"`
	To   StockItemResponse `json:"to"`
}

// CreateIntakeOrderRequest opens a new intake order
type CreateIntakeOrderRequest struct {
	SupplierID uuid.UUID         `validate:"required"`
	Reference  string            `validate:"required,max=100"`
	Lines      []IntakeLineInput `validate:"required,min=1,dive"`
	ActorID    uuid.UUID         `validate:"required"`
}

// IntakeLineInput is one ordered position on a new intake order
type IntakeLineInput struct {
	WineID     uuid.UUID       `validate:"required"`
	VintageID  uuid.UUID       `validate:"required"`
	LocationID uuid.UUID       `validate:"required"`
	Quantity   cellar.Quantity `validate:"required,gt=0"`
	UnitCost   decimal.Decimal
}

// ReceiveAgainstOrderRequest books a receipt against one intake order line.
// DedupKey is the collaborator-supplied external reference; a repeated key
// is rejected instead of double-counting.
type ReceiveAgainstOrderRequest struct {
	OrderID  uuid.UUID       `validate:"required"`
	LineID   uuid.UUID       `validate:"required"`
	Quantity cellar.Quantity `validate:"required,gt=0"`
	DedupKey string          `validate:"required,max=200"`
	ActorID  uuid.UUID       `validate:"required"`
}

// IntakeOrderResponse is the external view of an intake order
type IntakeOrderResponse struct {
	ID          uuid.UUID                 `json:"id"`
	SupplierID  uuid.UUID                 `json:"supplier_id"`
	Reference   string                    `json:"reference"`
	Status      cellar.IntakeOrderStatus  `json:"status"`
	CancelledAt *time.Time                `json:"cancelled_at,omitempty"`
	Lines       []IntakeOrderLineResponse `json:"lines"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// IntakeOrderLineResponse is the external view of one intake order line
type IntakeOrderLineResponse struct {
	ID               uuid.UUID       `json:"id"`
	WineID           uuid.UUID       `json:"wine_id"`
	VintageID        uuid.UUID       `json:"vintage_id"`
	LocationID       uuid.UUID       `json:"location_id"`
	OrderedQuantity  cellar.Quantity `json:"ordered_quantity"`
	ReceivedQuantity cellar.Quantity `json:"received_quantity"`
	Remaining        cellar.Quantity `json:"remaining"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
}

// ToIntakeOrderResponse maps an intake order to its external view
func ToIntakeOrderResponse(order *cellar.IntakeOrder) IntakeOrderResponse {
	lines := make([]IntakeOrderLineResponse, 0, len(order.Lines))
	for i := range order.Lines {
		line := &order.Lines[i]
		lines = append(lines, IntakeOrderLineResponse{
			ID:               line.ID,
			WineID:           line.WineID,
			VintageID:        line.VintageID,
			LocationID:       line.LocationID,
			OrderedQuantity:  line.OrderedQuantity,
			ReceivedQuantity: line.ReceivedQuantity,
			Remaining:        line.Remaining(),
			UnitCost:         line.UnitCost,
		})
	}
	return IntakeOrderResponse{
		ID:          order.ID,
		SupplierID:  order.SupplierID,
		Reference:   order.Reference,
		Status:      order.Status(),
		CancelledAt: order.CancelledAt,
		Lines:       lines,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

// LowStockAlert reports one holding below a threshold
type LowStockAlert struct {
	Key       cellar.StockItemKey `json:"stock_item_key"`
	Available cellar.Quantity     `json:"available"`
	Threshold cellar.Quantity     `json:"threshold"`
}
