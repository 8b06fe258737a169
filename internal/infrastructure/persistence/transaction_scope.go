package persistence

import (
	"context"

	appcellar "github.com/cellar/backend/internal/application/cellar"
	"github.com/cellar/backend/internal/domain/cellar"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appcellar.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// StockItems returns the stock item repository scoped to the current transaction
func (r *gormTransactionalRepositories) StockItems() cellar.StockItemRepository {
	return NewGormStockItemRepository(r.tx)
}

// Ledger returns the ledger entry repository scoped to the current transaction
func (r *gormTransactionalRepositories) Ledger() cellar.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

// IntakeOrders returns the intake order repository scoped to the current transaction
func (r *gormTransactionalRepositories) IntakeOrders() cellar.IntakeOrderRepository {
	return NewGormIntakeOrderRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appcellar.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appcellar.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
