package cellar

import (
	"fmt"
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItemKey identifies a distinct stock holding: one wine, one vintage,
// in one storage location.
type StockItemKey struct {
	WineID     uuid.UUID `json:"wine_id"`
	VintageID  uuid.UUID `json:"vintage_id"`
	LocationID uuid.UUID `json:"location_id"`
}

// NewStockItemKey creates a stock item key
func NewStockItemKey(wineID, vintageID, locationID uuid.UUID) StockItemKey {
	return StockItemKey{WineID: wineID, VintageID: vintageID, LocationID: locationID}
}

// IsValid returns true if all key components are set
func (k StockItemKey) IsValid() bool {
	return k.WineID != uuid.Nil && k.VintageID != uuid.Nil && k.LocationID != uuid.Nil
}

// String returns the canonical representation of the key. Operations that
// touch two keys order their writes lexicographically on this string so two
// concurrent moves over the same pair can never deadlock.
func (k StockItemKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.WineID, k.VintageID, k.LocationID)
}

// Less reports whether k orders before other in the canonical key order
func (k StockItemKey) Less(other StockItemKey) bool {
	return k.String() < other.String()
}

// StockItem is the aggregate root for one stock holding. Its quantities are
// the incrementally maintained projection of that holding's ledger; the
// ledger remains authoritative and the cached values must always equal a
// full replay.
type StockItem struct {
	shared.BaseAggregateRoot
	WineID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_item_key,priority:1"`
	VintageID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_item_key,priority:2"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_item_key,priority:3"`
	OnHand     Quantity  `gorm:"type:bigint;not null;default:0"`
	Reserved   Quantity  `gorm:"type:bigint;not null;default:0"`
	// UnitCost is the moving weighted-average cost per bottle, updated on
	// every receipt that carries a cost.
	UnitCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	// MinQuantity is the low-stock alert threshold for this holding
	MinQuantity Quantity `gorm:"type:bigint;not null;default:0"`
}

// TableName returns the table name for GORM
func (StockItem) TableName() string {
	return "stock_items"
}

// NewStockItem creates an empty stock item for a wine-vintage-location key
func NewStockItem(key StockItemKey) (*StockItem, error) {
	if !key.IsValid() {
		return nil, shared.NewDomainError("INVALID_STOCK_ITEM_KEY", "Wine, vintage and location IDs are required")
	}

	return &StockItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WineID:            key.WineID,
		VintageID:         key.VintageID,
		LocationID:        key.LocationID,
		UnitCost:          decimal.Zero,
	}, nil
}

// Key returns the stock item key
func (i *StockItem) Key() StockItemKey {
	return StockItemKey{WineID: i.WineID, VintageID: i.VintageID, LocationID: i.LocationID}
}

// Projected returns the cached projection for this item
func (i *StockItem) Projected() ProjectedStock {
	return ProjectedStock{OnHand: i.OnHand, Reserved: i.Reserved}
}

// Available returns the quantity free for consumption or reservation
func (i *StockItem) Available() Quantity {
	return i.Projected().Available()
}

// Receive adds bottles to on-hand stock and folds the unit cost into the
// moving weighted average when a cost is given.
func (i *StockItem) Receive(quantity Quantity, unitCost *decimal.Decimal) error {
	if quantity.IsZero() {
		return shared.ErrInvalidQuantity
	}
	if unitCost != nil {
		if unitCost.IsNegative() {
			return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
		}
		i.UnitCost = i.movingAverageCost(quantity, *unitCost)
	}

	i.OnHand = i.OnHand.Add(quantity)
	i.touch(EntryTypeReceive)
	return nil
}

// Consume removes bottles from on-hand stock. With againstReserved the
// bottles are drawn from a standing reservation instead of free stock.
func (i *StockItem) Consume(quantity Quantity, againstReserved bool) error {
	if quantity.IsZero() {
		return shared.ErrInvalidQuantity
	}
	if againstReserved {
		if i.Reserved < quantity {
			return shared.ErrInsufficientStock
		}
		i.Reserved -= quantity
	} else if i.Available() < quantity {
		return shared.ErrInsufficientStock
	}

	i.OnHand -= quantity
	i.touch(EntryTypeConsume)
	return nil
}

// MoveOut removes bottles for the outgoing leg of a location transfer
func (i *StockItem) MoveOut(quantity Quantity) error {
	if quantity.IsZero() {
		return shared.ErrInvalidQuantity
	}
	if i.Available() < quantity {
		return shared.ErrInsufficientStock
	}

	i.OnHand -= quantity
	i.touch(EntryTypeMoveOut)
	return nil
}

// MoveIn adds bottles for the incoming leg of a location transfer
func (i *StockItem) MoveIn(quantity Quantity) error {
	if quantity.IsZero() {
		return shared.ErrInvalidQuantity
	}

	i.OnHand = i.OnHand.Add(quantity)
	i.touch(EntryTypeMoveIn)
	return nil
}

// Reserve sets bottles aside for a pending purpose
func (i *StockItem) Reserve(quantity Quantity) error {
	if quantity.IsZero() {
		return shared.ErrInvalidQuantity
	}
	if i.Available() < quantity {
		return shared.ErrInsufficientStock
	}

	i.Reserved = i.Reserved.Add(quantity)
	i.touch(EntryTypeReserve)
	return nil
}

// Release returns reserved bottles to availability
func (i *StockItem) Release(quantity Quantity) error {
	if quantity.IsZero() {
		return shared.ErrInvalidQuantity
	}
	if i.Reserved < quantity {
		return shared.ErrOverRelease
	}

	i.Reserved -= quantity
	i.touch(EntryTypeRelease)
	return nil
}

// Adjust applies a manual audit correction. The magnitude is always
// positive, the sign lives in the direction.
func (i *StockItem) Adjust(direction AdjustDirection, quantity Quantity) error {
	if quantity.IsZero() {
		return shared.ErrInvalidQuantity
	}
	if !direction.IsValid() {
		return shared.NewDomainError("INVALID_DIRECTION", "Adjustment direction must be INCREASE or DECREASE")
	}
	if direction == AdjustDecrease {
		if i.Available() < quantity {
			return shared.ErrInsufficientStock
		}
		i.OnHand -= quantity
	} else {
		i.OnHand = i.OnHand.Add(quantity)
	}

	i.touch(EntryTypeAdjust)
	return nil
}

// SetMinQuantity sets the low-stock alert threshold for this holding
func (i *StockItem) SetMinQuantity(quantity Quantity) {
	i.MinQuantity = quantity
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// IsBelowThreshold returns true if available stock has fallen below the
// configured minimum for this holding
func (i *StockItem) IsBelowThreshold() bool {
	return i.MinQuantity > 0 && i.Available() < i.MinQuantity
}

// movingAverageCost folds a receipt into the weighted average unit cost
func (i *StockItem) movingAverageCost(quantity Quantity, unitCost decimal.Decimal) decimal.Decimal {
	oldQuantity := decimal.NewFromUint64(i.OnHand.Uint64())
	if oldQuantity.IsZero() {
		return unitCost
	}
	newQuantity := decimal.NewFromUint64(quantity.Uint64())
	totalValue := oldQuantity.Mul(i.UnitCost).Add(newQuantity.Mul(unitCost))
	return totalValue.Div(oldQuantity.Add(newQuantity)).Round(4)
}

// touch records a state change: bumps the optimistic-lock version and emits
// the change event, plus a threshold event when the holding dips below its
// configured minimum.
func (i *StockItem) touch(entryType EntryType) {
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	i.AddDomainEvent(NewStockChangedEvent(i, entryType))
	if i.IsBelowThreshold() {
		i.AddDomainEvent(NewStockBelowThresholdEvent(i))
	}
}
