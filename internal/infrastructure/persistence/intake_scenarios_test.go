package persistence

import (
	"context"
	"testing"

	appcellar "github.com/cellar/backend/internal/application/cellar"
	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newIntakeTestStack wires the intake workflow end to end: order repository,
// stock repositories, transaction scope and the in-memory dedup store.
func newIntakeTestStack(t *testing.T) (*appcellar.IntakeService, *gorm.DB) {
	t.Helper()

	_, db := newLedgerTestStack(t)

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	scope := NewGormTransactionScope(db)
	orderRepo := NewGormIntakeOrderRepository(db)
	return appcellar.NewIntakeService(scope, orderRepo, store, zap.NewNop()), db
}

func createIntakeOrder(t *testing.T, service *appcellar.IntakeService, reference string, quantities ...cellar.Quantity) *appcellar.IntakeOrderResponse {
	t.Helper()

	lines := make([]appcellar.IntakeLineInput, 0, len(quantities))
	for _, quantity := range quantities {
		lines = append(lines, appcellar.IntakeLineInput{
			WineID:     uuid.New(),
			VintageID:  uuid.New(),
			LocationID: uuid.New(),
			Quantity:   quantity,
			UnitCost:   decimal.NewFromFloat(18.50),
		})
	}

	order, err := service.CreateOrder(context.Background(), appcellar.CreateIntakeOrderRequest{
		SupplierID: uuid.New(),
		Reference:  reference,
		Lines:      lines,
		ActorID:    uuid.New(),
	})
	require.NoError(t, err)
	return order
}

func TestIntake_FullReceivingWorkflow(t *testing.T) {
	service, db := newIntakeTestStack(t)
	ctx := context.Background()
	actor := uuid.New()

	order := createIntakeOrder(t, service, "PO-2025-100", 12, 6)
	assert.Equal(t, cellar.IntakeOrderStatusOpen, order.Status)

	// first delivery covers part of line one
	resp, err := service.ReceiveAgainstOrder(ctx, appcellar.ReceiveAgainstOrderRequest{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: 5,
		DedupKey: "PO-2025-100/delivery-1", ActorID: actor,
	})
	require.NoError(t, err)
	assert.Equal(t, cellar.IntakeOrderStatusPartial, resp.Status)
	assert.Equal(t, cellar.Quantity(7), resp.Lines[0].Remaining)

	// the stock holding and ledger reflect the receipt
	line := order.Lines[0]
	key := cellar.NewStockItemKey(line.WineID, line.VintageID, line.LocationID)
	var item cellar.StockItem
	require.NoError(t, db.Where("wine_id = ? AND vintage_id = ? AND location_id = ?",
		key.WineID, key.VintageID, key.LocationID).First(&item).Error)
	assert.Equal(t, cellar.Quantity(5), item.OnHand)
	assert.True(t, line.UnitCost.Equal(item.UnitCost))

	var entryCount int64
	require.NoError(t, db.Model(&cellar.LedgerEntry{}).
		Where("wine_id = ? AND entry_type = ?", key.WineID, cellar.EntryTypeReceive).
		Count(&entryCount).Error)
	assert.Equal(t, int64(1), entryCount)

	// remaining deliveries close the order
	_, err = service.ReceiveAgainstOrder(ctx, appcellar.ReceiveAgainstOrderRequest{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: 7,
		DedupKey: "PO-2025-100/delivery-2", ActorID: actor,
	})
	require.NoError(t, err)
	resp, err = service.ReceiveAgainstOrder(ctx, appcellar.ReceiveAgainstOrderRequest{
		OrderID: order.ID, LineID: order.Lines[1].ID, Quantity: 6,
		DedupKey: "PO-2025-100/delivery-3", ActorID: actor,
	})
	require.NoError(t, err)
	assert.Equal(t, cellar.IntakeOrderStatusComplete, resp.Status)

	// the persisted order agrees
	fetched, err := service.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, cellar.IntakeOrderStatusComplete, fetched.Status)
	for _, fetchedLine := range fetched.Lines {
		assert.True(t, fetchedLine.Remaining.IsZero())
	}
}

func TestIntake_DuplicateDeliveryReferenceIsRejected(t *testing.T) {
	service, db := newIntakeTestStack(t)
	ctx := context.Background()
	actor := uuid.New()

	order := createIntakeOrder(t, service, "PO-2025-101", 12)

	_, err := service.ReceiveAgainstOrder(ctx, appcellar.ReceiveAgainstOrderRequest{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: 5,
		DedupKey: "PO-2025-101/delivery-1", ActorID: actor,
	})
	require.NoError(t, err)

	// the same delivery reference replayed must not double-count
	_, err = service.ReceiveAgainstOrder(ctx, appcellar.ReceiveAgainstOrderRequest{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: 5,
		DedupKey: "PO-2025-101/delivery-1", ActorID: actor,
	})
	assert.ErrorIs(t, err, shared.ErrDuplicateReceipt)

	fetched, err := service.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, cellar.Quantity(5), fetched.Lines[0].ReceivedQuantity)

	var entryCount int64
	require.NoError(t, db.Model(&cellar.LedgerEntry{}).
		Where("wine_id = ?", order.Lines[0].WineID).
		Count(&entryCount).Error)
	assert.Equal(t, int64(1), entryCount)
}

func TestIntake_OverReceiptRollsBackEverything(t *testing.T) {
	service, db := newIntakeTestStack(t)
	ctx := context.Background()

	order := createIntakeOrder(t, service, "PO-2025-102", 12)

	_, err := service.ReceiveAgainstOrder(ctx, appcellar.ReceiveAgainstOrderRequest{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: 13,
		DedupKey: "PO-2025-102/delivery-1", ActorID: uuid.New(),
	})
	assert.ErrorIs(t, err, shared.ErrOverReceipt)

	fetched, err := service.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, cellar.IntakeOrderStatusOpen, fetched.Status)
	assert.True(t, fetched.Lines[0].ReceivedQuantity.IsZero())

	var entryCount int64
	require.NoError(t, db.Model(&cellar.LedgerEntry{}).Count(&entryCount).Error)
	assert.Zero(t, entryCount)
}

func TestIntake_CancelKeepsReceivedBottles(t *testing.T) {
	service, db := newIntakeTestStack(t)
	ctx := context.Background()

	order := createIntakeOrder(t, service, "PO-2025-103", 12)

	_, err := service.ReceiveAgainstOrder(ctx, appcellar.ReceiveAgainstOrderRequest{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: 5,
		DedupKey: "PO-2025-103/delivery-1", ActorID: uuid.New(),
	})
	require.NoError(t, err)

	cancelled, err := service.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, cellar.IntakeOrderStatusCancelled, cancelled.Status)

	// receipts stay in stock; only the outstanding remainder is voided
	var item cellar.StockItem
	require.NoError(t, db.Where("wine_id = ?", order.Lines[0].WineID).First(&item).Error)
	assert.Equal(t, cellar.Quantity(5), item.OnHand)

	// and the cancelled order takes no further receipts
	_, err = service.ReceiveAgainstOrder(ctx, appcellar.ReceiveAgainstOrderRequest{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: 1,
		DedupKey: "PO-2025-103/delivery-2", ActorID: uuid.New(),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestIntake_FindByStatus(t *testing.T) {
	service, db := newIntakeTestStack(t)
	ctx := context.Background()

	open := createIntakeOrder(t, service, "PO-2025-104", 12)
	completed := createIntakeOrder(t, service, "PO-2025-105", 5)
	_, err := service.ReceiveAgainstOrder(ctx, appcellar.ReceiveAgainstOrderRequest{
		OrderID: completed.ID, LineID: completed.Lines[0].ID, Quantity: 5,
		DedupKey: "PO-2025-105/delivery-1", ActorID: uuid.New(),
	})
	require.NoError(t, err)

	repo := NewGormIntakeOrderRepository(db)

	openOrders, err := repo.FindByStatus(ctx, cellar.IntakeOrderStatusOpen, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, openOrders, 1)
	assert.Equal(t, open.ID, openOrders[0].ID)

	completeOrders, err := repo.FindByStatus(ctx, cellar.IntakeOrderStatusComplete, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, completeOrders, 1)
	assert.Equal(t, completed.ID, completeOrders[0].ID)
}
