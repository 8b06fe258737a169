package cellar

import (
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType represents the type of ledger entry
type EntryType string

const (
	// EntryTypeReceive represents bottles entering stock (intake, returns)
	EntryTypeReceive EntryType = "RECEIVE"
	// EntryTypeConsume represents bottles leaving stock (served, sold, broken)
	EntryTypeConsume EntryType = "CONSUME"
	// EntryTypeMoveOut represents the outgoing leg of a location transfer
	EntryTypeMoveOut EntryType = "MOVE_OUT"
	// EntryTypeMoveIn represents the incoming leg of a location transfer
	EntryTypeMoveIn EntryType = "MOVE_IN"
	// EntryTypeReserve represents bottles set aside for a pending purpose
	EntryTypeReserve EntryType = "RESERVE"
	// EntryTypeRelease represents reserved bottles returned to availability
	EntryTypeRelease EntryType = "RELEASE"
	// EntryTypeAdjust represents a manual audit correction
	EntryTypeAdjust EntryType = "ADJUST"
)

// String returns the string representation of EntryType
func (t EntryType) String() string {
	return string(t)
}

// IsValid returns true if the entry type is valid
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeReceive,
		EntryTypeConsume,
		EntryTypeMoveOut,
		EntryTypeMoveIn,
		EntryTypeReserve,
		EntryTypeRelease,
		EntryTypeAdjust:
		return true
	}
	return false
}

// AddsOnHand returns true if this entry type increases on-hand quantity
func (t EntryType) AddsOnHand() bool {
	return t == EntryTypeReceive || t == EntryTypeMoveIn
}

// RemovesOnHand returns true if this entry type decreases on-hand quantity
func (t EntryType) RemovesOnHand() bool {
	return t == EntryTypeConsume || t == EntryTypeMoveOut
}

// AdjustDirection gives an ADJUST entry its sign. All other entry types
// encode direction in the type itself and leave this empty.
type AdjustDirection string

const (
	// AdjustIncrease adds the adjustment quantity to on-hand stock
	AdjustIncrease AdjustDirection = "INCREASE"
	// AdjustDecrease removes the adjustment quantity from on-hand stock
	AdjustDecrease AdjustDirection = "DECREASE"
)

// IsValid returns true if the direction is valid
func (d AdjustDirection) IsValid() bool {
	return d == AdjustIncrease || d == AdjustDecrease
}

// LedgerEntry is an immutable record of a stock-affecting event.
// Entries are never updated or deleted; corrections are new ADJUST entries.
// Quantity is always strictly positive, direction is carried by EntryType
// (plus Direction for ADJUST).
type LedgerEntry struct {
	shared.BaseEntity
	WineID          uuid.UUID        `gorm:"type:uuid;not null;index:idx_ledger_key,priority:1"`
	VintageID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_ledger_key,priority:2"`
	LocationID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_ledger_key,priority:3"`
	EntryType       EntryType        `gorm:"type:varchar(20);not null;index:idx_ledger_type"`
	Quantity        Quantity         `gorm:"type:bigint;not null;check:quantity > 0"`
	UnitCost        *decimal.Decimal `gorm:"type:decimal(18,4)"` // Cost per bottle, receipts only
	Direction       AdjustDirection  `gorm:"type:varchar(10)"`   // ADJUST entries only
	AgainstReserved bool             `gorm:"not null;default:false"`
	ActorID         uuid.UUID        `gorm:"type:uuid;not null"`
	Notes           string           `gorm:"type:varchar(500)"`
	RelatedEntryID  *uuid.UUID       `gorm:"type:uuid;index"`  // Links MOVE_OUT<->MOVE_IN and RESERVE<->RELEASE pairs
	ExpiresAt       *time.Time       `gorm:"type:timestamptz"` // RESERVE entries only; expired reservations are swept back to availability
	RecordedAt      time.Time        `gorm:"type:timestamptz;not null;index:idx_ledger_key,priority:4"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerEntry creates a new immutable ledger entry
func NewLedgerEntry(key StockItemKey, entryType EntryType, quantity Quantity, actorID uuid.UUID) (*LedgerEntry, error) {
	if key.WineID == uuid.Nil || key.VintageID == uuid.Nil || key.LocationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOCK_ITEM_KEY", "Wine, vintage and location IDs are required")
	}
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTRY_TYPE", "Invalid ledger entry type")
	}
	if quantity.IsZero() {
		return nil, shared.ErrInvalidQuantity
	}
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Actor ID cannot be empty")
	}

	return &LedgerEntry{
		BaseEntity: shared.NewBaseEntity(),
		WineID:     key.WineID,
		VintageID:  key.VintageID,
		LocationID: key.LocationID,
		EntryType:  entryType,
		Quantity:   quantity,
		ActorID:    actorID,
		RecordedAt: time.Now(),
	}, nil
}

// Key returns the stock item key this entry belongs to
func (e *LedgerEntry) Key() StockItemKey {
	return StockItemKey{WineID: e.WineID, VintageID: e.VintageID, LocationID: e.LocationID}
}

// WithUnitCost sets the per-bottle cost for the entry
func (e *LedgerEntry) WithUnitCost(cost decimal.Decimal) *LedgerEntry {
	e.UnitCost = &cost
	return e
}

// WithDirection sets the adjustment direction (ADJUST entries only)
func (e *LedgerEntry) WithDirection(direction AdjustDirection) *LedgerEntry {
	e.Direction = direction
	return e
}

// WithAgainstReserved marks a CONSUME entry as drawing from reserved stock
func (e *LedgerEntry) WithAgainstReserved() *LedgerEntry {
	e.AgainstReserved = true
	return e
}

// WithNotes sets free-form notes on the entry
func (e *LedgerEntry) WithNotes(notes string) *LedgerEntry {
	e.Notes = notes
	return e
}

// WithRelatedEntryID links this entry to its counterpart
// (MOVE_OUT to MOVE_IN, RESERVE to RELEASE)
func (e *LedgerEntry) WithRelatedEntryID(id uuid.UUID) *LedgerEntry {
	e.RelatedEntryID = &id
	return e
}

// WithExpiresAt sets the expiry for a RESERVE entry
func (e *LedgerEntry) WithExpiresAt(at time.Time) *LedgerEntry {
	e.ExpiresAt = &at
	return e
}

// IsExpired reports whether a RESERVE entry's expiry has passed
func (e *LedgerEntry) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}

// WithRecordedAt overrides the recorded timestamp
func (e *LedgerEntry) WithRecordedAt(at time.Time) *LedgerEntry {
	e.RecordedAt = at
	return e
}

// SignedQuantity returns the on-hand delta this entry represents.
// The sign is derived from the type tag, never stored.
func (e *LedgerEntry) SignedQuantity() int64 {
	switch {
	case e.EntryType.AddsOnHand():
		return int64(e.Quantity)
	case e.EntryType.RemovesOnHand():
		return -int64(e.Quantity)
	case e.EntryType == EntryTypeAdjust && e.Direction == AdjustDecrease:
		return -int64(e.Quantity)
	case e.EntryType == EntryTypeAdjust:
		return int64(e.Quantity)
	}
	return 0
}
