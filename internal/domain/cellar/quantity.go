package cellar

import "github.com/cellar/backend/internal/domain/shared"

// Quantity is a count of physical bottles. It is unsigned on purpose:
// a ledger entry can never carry a negative number, direction always lives
// in the entry type tag.
type Quantity uint64

// IsZero returns true if the quantity is zero
func (q Quantity) IsZero() bool {
	return q == 0
}

// Add returns the sum of two quantities
func (q Quantity) Add(other Quantity) Quantity {
	return q + other
}

// Sub returns the difference of two quantities, failing instead of
// underflowing when other exceeds q.
func (q Quantity) Sub(other Quantity) (Quantity, error) {
	if other > q {
		return 0, shared.ErrConstraintViolation
	}
	return q - other, nil
}

// Uint64 returns the quantity as a plain uint64
func (q Quantity) Uint64() uint64 {
	return uint64(q)
}
