package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	// ErrInvalidQuantity rejects non-positive or malformed quantities before
	// anything touches the ledger.
	ErrInvalidQuantity = NewDomainError("INVALID_QUANTITY", "Quantity must be a positive integer")

	// ErrInsufficientStock means the requested quantity exceeds what the
	// current projection makes available.
	ErrInsufficientStock = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")

	// ErrOverRelease means a release exceeds the currently reserved quantity.
	ErrOverRelease = NewDomainError("OVER_RELEASE", "Release exceeds reserved quantity")

	// ErrOverReceipt means a receipt against an intake order exceeds the
	// remaining ordered quantity for that line.
	ErrOverReceipt = NewDomainError("OVER_RECEIPT", "Receipt exceeds remaining ordered quantity")

	// ErrStaleState is the optimistic-concurrency loss: another mutation
	// committed first for the same stock item. Callers must re-snapshot and
	// retry; nothing is retried internally.
	ErrStaleState = NewDomainError("STALE_STATE_CONFLICT", "Stock item was modified by another operation")

	// ErrConstraintViolation signals that a ledger-level invariant would be
	// broken. It must never occur when operations validate correctly, so it
	// indicates a defect in the validation layer and is logged loudly.
	ErrConstraintViolation = NewDomainError("CONSTRAINT_VIOLATION", "Ledger invariant violated")

	// ErrSameLocation rejects a degenerate move between identical locations.
	ErrSameLocation = NewDomainError("SAME_LOCATION", "Move requires two distinct locations")

	// ErrDuplicateReceipt rejects a receipt whose deduplication key has
	// already been processed.
	ErrDuplicateReceipt = NewDomainError("DUPLICATE_RECEIPT", "Receipt with this reference was already processed")
)
