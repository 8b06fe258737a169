package cellar

import "github.com/cellar/backend/internal/domain/shared"

// ProjectedStock is the derived current-state view for one stock item,
// computed by folding its ledger entries in recorded order. It is a
// disposable cache: the ledger is the only source of truth and the
// projection can always be rebuilt by replay.
//
// At every prefix of the ledger the projection satisfies
// Reserved <= OnHand; OnHand >= 0 is structural (Quantity is unsigned).
type ProjectedStock struct {
	OnHand   Quantity `json:"on_hand"`
	Reserved Quantity `json:"reserved"`
}

// Available returns the quantity free for consumption or reservation
func (p ProjectedStock) Available() Quantity {
	// Reserved <= OnHand holds for every reachable projection
	return p.OnHand - p.Reserved
}

// Apply folds one ledger entry into the projection. It returns
// ErrConstraintViolation if the entry would drive the projection into an
// unreachable state; a correctly validated mutation path never does.
func (p ProjectedStock) Apply(entry *LedgerEntry) (ProjectedStock, error) {
	if entry.Quantity.IsZero() {
		return p, shared.ErrConstraintViolation
	}

	switch entry.EntryType {
	case EntryTypeReceive, EntryTypeMoveIn:
		p.OnHand = p.OnHand.Add(entry.Quantity)

	case EntryTypeConsume:
		onHand, err := p.OnHand.Sub(entry.Quantity)
		if err != nil {
			return p, shared.ErrConstraintViolation
		}
		p.OnHand = onHand
		if entry.AgainstReserved {
			reserved, err := p.Reserved.Sub(entry.Quantity)
			if err != nil {
				return p, shared.ErrConstraintViolation
			}
			p.Reserved = reserved
		}

	case EntryTypeMoveOut:
		onHand, err := p.OnHand.Sub(entry.Quantity)
		if err != nil {
			return p, shared.ErrConstraintViolation
		}
		p.OnHand = onHand

	case EntryTypeReserve:
		p.Reserved = p.Reserved.Add(entry.Quantity)

	case EntryTypeRelease:
		reserved, err := p.Reserved.Sub(entry.Quantity)
		if err != nil {
			return p, shared.ErrConstraintViolation
		}
		p.Reserved = reserved

	case EntryTypeAdjust:
		if !entry.Direction.IsValid() {
			return p, shared.ErrConstraintViolation
		}
		if entry.Direction == AdjustIncrease {
			p.OnHand = p.OnHand.Add(entry.Quantity)
		} else {
			onHand, err := p.OnHand.Sub(entry.Quantity)
			if err != nil {
				return p, shared.ErrConstraintViolation
			}
			p.OnHand = onHand
		}

	default:
		return p, shared.ErrConstraintViolation
	}

	if p.Reserved > p.OnHand {
		return p, shared.ErrConstraintViolation
	}
	return p, nil
}

// Replay rebuilds the projection from scratch by folding the full entry
// history in order. Replay of the entries accepted so far must always equal
// the incrementally maintained projection; that equivalence is the core
// correctness property of the ledger.
func Replay(entries []LedgerEntry) (ProjectedStock, error) {
	var projected ProjectedStock
	for i := range entries {
		next, err := projected.Apply(&entries[i])
		if err != nil {
			return projected, err
		}
		projected = next
	}
	return projected, nil
}
