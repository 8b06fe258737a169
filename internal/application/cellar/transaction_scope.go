package cellar

import (
	"context"

	"github.com/cellar/backend/internal/domain/cellar"
)

// TransactionScope provides transactional access to the cellar repositories.
// Every mutation operation runs its guarded append inside one scope so the
// projection cache update and the ledger append commit or roll back as a
// single unit. A move additionally has both legs inside the same scope,
// which is what makes a half-committed transfer impossible.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the cellar repositories
// bound to the current transaction
type TransactionalRepositories interface {
	// StockItems returns the stock item repository scoped to the transaction
	StockItems() cellar.StockItemRepository
	// Ledger returns the ledger entry repository scoped to the transaction
	Ledger() cellar.LedgerEntryRepository
	// IntakeOrders returns the intake order repository scoped to the transaction
	IntakeOrders() cellar.IntakeOrderRepository
}

// NoOpTransactionScope runs the function against the given repositories
// without a real transaction. Used in tests and with backends that cannot
// open nested transactions.
type NoOpTransactionScope struct {
	stockItems   cellar.StockItemRepository
	ledger       cellar.LedgerEntryRepository
	intakeOrders cellar.IntakeOrderRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	stockItems cellar.StockItemRepository,
	ledger cellar.LedgerEntryRepository,
	intakeOrders cellar.IntakeOrderRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		stockItems:   stockItems,
		ledger:       ledger,
		intakeOrders: intakeOrders,
	}
}

// Execute runs the function without transactional guarantees
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// StockItems returns the stock item repository
func (s *NoOpTransactionScope) StockItems() cellar.StockItemRepository {
	return s.stockItems
}

// Ledger returns the ledger entry repository
func (s *NoOpTransactionScope) Ledger() cellar.LedgerEntryRepository {
	return s.ledger
}

// IntakeOrders returns the intake order repository
func (s *NoOpTransactionScope) IntakeOrders() cellar.IntakeOrderRepository {
	return s.intakeOrders
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
