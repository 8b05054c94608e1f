package orderrequests

import (
	"context"
	"testing"

	"github.com/campuscycles/pos-backend/internal/audit"
	"github.com/campuscycles/pos-backend/internal/inventory"
	"github.com/campuscycles/pos-backend/internal/transactions"
	"github.com/campuscycles/pos-backend/internal/users"
	"github.com/campuscycles/pos-backend/pkg/config"
	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/campuscycles/pos-backend/pkg/enums"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// setupRequestsTest wires the real inventory, transactions, and audit
// services over sqlite so completion cascades run end to end.
func setupRequestsTest(t *testing.T) (*gorm.DB, Service, uuid.UUID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.Order{},
		&models.OrderRequest{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.RequestTransactionLink{},
		&models.WaitingPartLink{},
		&models.Action{},
	))

	actor := &models.User{Username: "mechanic"}
	require.NoError(t, db.Create(actor).Error)

	runner := testTxRunner{db: db}
	auditSvc, err := audit.NewService(audit.NewRepository(db), users.NewRepository(db))
	require.NoError(t, err)
	invSvc, err := inventory.NewService(inventory.NewRepository(db), runner, auditSvc, nil)
	require.NoError(t, err)
	txnSvc, err := transactions.NewService(transactions.NewRepository(db), runner, auditSvc,
		config.PricingConfig{EmployeePriceMultiplier: 1.1}, nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), runner, auditSvc, invSvc, txnSvc)
	require.NoError(t, err)

	return db, svc, actor.ID
}

func seedItem(t *testing.T, db *gorm.DB, name string, wholesale int64) *models.Item {
	t.Helper()
	item := &models.Item{
		Name:          name,
		StandardPrice: decimal.NewFromInt(wholesale * 2),
		WholesaleCost: decimal.NewFromInt(wholesale),
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func countLinks(t *testing.T, db *gorm.DB, requestID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.RequestTransactionLink{}).
		Where("order_request_id = ?", requestID).Count(&count).Error)
	return count
}

func countWaiting(t *testing.T, db *gorm.DB, transactionID, requestID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.WaitingPartLink{}).
		Where("transaction_id = ? AND order_request_id = ?", transactionID, requestID).
		Count(&count).Error)
	return count
}

func TestCreate_LinksGivenTransactions(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	item := seedItem(t, db, "Shifter", 30)
	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	itemID := item.ID
	// The same transaction twice means the sale needs two units.
	created, err := svc.Create(context.Background(), CreateInput{
		Description:    "11-speed shifter",
		Quantity:       2,
		ItemID:         &itemID,
		TransactionIDs: []uuid.UUID{txn.ID, txn.ID},
	}, actor)
	require.NoError(t, err)

	require.Equal(t, int64(2), countLinks(t, db, created.ID))
	require.Equal(t, int64(2), countWaiting(t, db, txn.ID, created.ID))

	var actions int64
	require.NoError(t, db.Model(&models.Action{}).
		Where("entity_id = ?", created.ID).Count(&actions).Error)
	require.Equal(t, int64(1), actions)
}

func TestCreate_UnknownItemRejected(t *testing.T) {
	_, svc, actor := setupRequestsTest(t)

	missing := uuid.New()
	_, err := svc.Create(context.Background(), CreateInput{
		Description: "Mystery part",
		Quantity:    1,
		ItemID:      &missing,
	}, actor)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSetQuantity_RejectsBelowLinkedCount(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	txnA := &models.Transaction{}
	txnB := &models.Transaction{}
	require.NoError(t, db.Create(txnA).Error)
	require.NoError(t, db.Create(txnB).Error)

	created, err := svc.Create(context.Background(), CreateInput{
		Description:    "Hub bearing",
		Quantity:       2,
		TransactionIDs: []uuid.UUID{txnA.ID, txnB.ID},
	}, actor)
	require.NoError(t, err)

	err = svc.SetQuantity(context.Background(), created.ID, 1, actor)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	require.NoError(t, svc.SetQuantity(context.Background(), created.ID, 3, actor))
}

func TestAddTransaction_GrowsQuantityLinksAndOrderTotal(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	item := seedItem(t, db, "Rim", 10)
	order := &models.Order{Supplier: "QBP", Status: enums.OrderStatusInCart}
	require.NoError(t, db.Create(order).Error)

	itemID := item.ID
	created, err := svc.Create(context.Background(), CreateInput{
		Description: "700c rim",
		Quantity:    3,
		ItemID:      &itemID,
	}, actor)
	require.NoError(t, err)

	// Attach directly: membership plus the contribution of 3 units at 10.
	require.NoError(t, db.Model(&models.OrderRequest{}).
		Where("id = ?", created.ID).
		Updates(map[string]any{"order_id": order.ID, "status": enums.OrderStatusInCart}).Error)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("total_price", decimal.NewFromInt(30)).Error)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	require.NoError(t, svc.AddTransaction(context.Background(), created.ID, txn.ID, actor))

	var request models.OrderRequest
	require.NoError(t, db.First(&request, "id = ?", created.ID).Error)
	require.Equal(t, 4, request.Quantity)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	require.True(t, reloadedOrder.TotalPrice.Equal(decimal.NewFromInt(40)),
		"total = %s", reloadedOrder.TotalPrice)

	require.Equal(t, int64(1), countLinks(t, db, created.ID))
	require.Equal(t, int64(1), countWaiting(t, db, txn.ID, created.ID))
}

func TestAddTransaction_CompletedTransactionRejected(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	created, err := svc.Create(context.Background(), CreateInput{
		Description: "Seatpost clamp",
		Quantity:    1,
	}, actor)
	require.NoError(t, err)

	txn := &models.Transaction{Complete: true}
	require.NoError(t, db.Create(txn).Error)

	err = svc.AddTransaction(context.Background(), created.ID, txn.ID, actor)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestSetStatus_CompletionRoundTrip(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	item := seedItem(t, db, "Fork", 25)
	require.NoError(t, db.Model(&models.Item{}).
		Where("id = ?", item.ID).Update("stock", 1).Error)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	itemID := item.ID
	created, err := svc.Create(context.Background(), CreateInput{
		Description:    "Suspension fork",
		Quantity:       4,
		ItemID:         &itemID,
		TransactionIDs: []uuid.UUID{txn.ID},
	}, actor)
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(context.Background(), created.ID, enums.OrderStatusCompleted, actor))

	var reloadedItem models.Item
	require.NoError(t, db.First(&reloadedItem, "id = ?", item.ID).Error)
	require.Equal(t, 5, reloadedItem.Stock)

	// The transaction gains a concrete line and stops waiting; the request
	// keeps its historical transaction link.
	var lines int64
	require.NoError(t, db.Model(&models.TransactionItem{}).
		Where("transaction_id = ?", txn.ID).Count(&lines).Error)
	require.Equal(t, int64(1), lines)
	require.Equal(t, int64(0), countWaiting(t, db, txn.ID, created.ID))
	require.Equal(t, int64(1), countLinks(t, db, created.ID))

	require.NoError(t, svc.SetStatus(context.Background(), created.ID, enums.OrderStatusNotOrdered, actor))

	require.NoError(t, db.First(&reloadedItem, "id = ?", item.ID).Error)
	require.Equal(t, 1, reloadedItem.Stock)
	require.NoError(t, db.Model(&models.TransactionItem{}).
		Where("transaction_id = ?", txn.ID).Count(&lines).Error)
	require.Equal(t, int64(0), lines)
	require.Equal(t, int64(1), countWaiting(t, db, txn.ID, created.ID))
}

// TestAddTransaction_CompletionCascadeFulfillsSale drives the linkage from the
// transaction side, the way the waiting-requests endpoints do, and checks both
// link tables stay in step through completion, reversal, and removal.
func TestAddTransaction_CompletionCascadeFulfillsSale(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	auditSvc, err := audit.NewService(audit.NewRepository(db), users.NewRepository(db))
	require.NoError(t, err)
	txnSvc, err := transactions.NewService(transactions.NewRepository(db), testTxRunner{db: db},
		auditSvc, config.PricingConfig{EmployeePriceMultiplier: 1.1}, nil)
	require.NoError(t, err)

	item := seedItem(t, db, "Derailleur hanger", 8)
	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	itemID := item.ID
	created, err := svc.Create(context.Background(), CreateInput{
		Description: "Spare hanger",
		Quantity:    1,
		ItemID:      &itemID,
	}, actor)
	require.NoError(t, err)

	require.NoError(t, svc.AddTransaction(context.Background(), created.ID, txn.ID, actor))

	// Both sides of the linkage grow together with the quantity.
	var request models.OrderRequest
	require.NoError(t, db.First(&request, "id = ?", created.ID).Error)
	require.Equal(t, 2, request.Quantity)
	require.Equal(t, int64(1), countLinks(t, db, created.ID))
	require.Equal(t, int64(1), countWaiting(t, db, txn.ID, created.ID))

	err = txnSvc.Complete(context.Background(), txn.ID, actor)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	require.NoError(t, svc.SetStatus(context.Background(), created.ID, enums.OrderStatusCompleted, actor))

	var lines int64
	require.NoError(t, db.Model(&models.TransactionItem{}).
		Where("transaction_id = ?", txn.ID).Count(&lines).Error)
	require.Equal(t, int64(1), lines)
	require.Equal(t, int64(0), countWaiting(t, db, txn.ID, created.ID))
	require.Equal(t, int64(1), countLinks(t, db, created.ID))

	require.NoError(t, svc.SetStatus(context.Background(), created.ID, enums.OrderStatusNotOrdered, actor))

	require.NoError(t, db.Model(&models.TransactionItem{}).
		Where("transaction_id = ?", txn.ID).Count(&lines).Error)
	require.Equal(t, int64(0), lines)
	require.Equal(t, int64(1), countWaiting(t, db, txn.ID, created.ID))

	require.NoError(t, svc.RemoveTransaction(context.Background(), created.ID, txn.ID, actor))

	require.NoError(t, db.First(&request, "id = ?", created.ID).Error)
	require.Equal(t, 1, request.Quantity)
	require.Equal(t, int64(0), countLinks(t, db, created.ID))
	require.Equal(t, int64(0), countWaiting(t, db, txn.ID, created.ID))

	require.NoError(t, txnSvc.Complete(context.Background(), txn.ID, actor))
}

func TestSetStatus_AttachedRequestRejected(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	item := seedItem(t, db, "Stem", 12)
	order := &models.Order{Supplier: "J&B", Status: enums.OrderStatusInCart}
	require.NoError(t, db.Create(order).Error)

	itemID := item.ID
	created, err := svc.Create(context.Background(), CreateInput{
		Description: "Stem 90mm",
		Quantity:    1,
		ItemID:      &itemID,
	}, actor)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.OrderRequest{}).
		Where("id = ?", created.ID).Update("order_id", order.ID).Error)

	err = svc.SetStatus(context.Background(), created.ID, enums.OrderStatusOrdered, actor)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestRemoveTransaction_LastLinkDeletesRequest(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	item := seedItem(t, db, "Bottom bracket", 10)
	order := &models.Order{
		Supplier:   "QBP",
		Status:     enums.OrderStatusInCart,
		TotalPrice: decimal.NewFromInt(10),
	}
	require.NoError(t, db.Create(order).Error)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	itemID := item.ID
	created, err := svc.Create(context.Background(), CreateInput{
		Description:    "BB86",
		Quantity:       1,
		ItemID:         &itemID,
		TransactionIDs: []uuid.UUID{txn.ID},
	}, actor)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.OrderRequest{}).
		Where("id = ?", created.ID).
		Updates(map[string]any{"order_id": order.ID, "status": enums.OrderStatusInCart}).Error)

	require.NoError(t, svc.RemoveTransaction(context.Background(), created.ID, txn.ID, actor))

	var count int64
	require.NoError(t, db.Model(&models.OrderRequest{}).
		Where("id = ?", created.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)
	require.Equal(t, int64(0), countLinks(t, db, created.ID))
	require.Equal(t, int64(0), countWaiting(t, db, txn.ID, created.ID))

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	require.True(t, reloadedOrder.TotalPrice.Equal(decimal.Zero),
		"total = %s", reloadedOrder.TotalPrice)
}

func TestRemoveTransaction_RemovesOneOccurrence(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	created, err := svc.Create(context.Background(), CreateInput{
		Description:    "Grips",
		Quantity:       2,
		TransactionIDs: []uuid.UUID{txn.ID, txn.ID},
	}, actor)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveTransaction(context.Background(), created.ID, txn.ID, actor))

	var request models.OrderRequest
	require.NoError(t, db.First(&request, "id = ?", created.ID).Error)
	require.Equal(t, 1, request.Quantity)
	require.Equal(t, int64(1), countLinks(t, db, created.ID))
	require.Equal(t, int64(1), countWaiting(t, db, txn.ID, created.ID))
}

func TestDelete_UnattachedClearsWaitingLinks(t *testing.T) {
	db, svc, actor := setupRequestsTest(t)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	created, err := svc.Create(context.Background(), CreateInput{
		Description:    "Headset",
		Quantity:       1,
		TransactionIDs: []uuid.UUID{txn.ID},
	}, actor)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, actor))

	var count int64
	require.NoError(t, db.Model(&models.OrderRequest{}).
		Where("id = ?", created.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)
	require.Equal(t, int64(0), countWaiting(t, db, txn.ID, created.ID))
}

func TestLatest_RequiresPositiveLimit(t *testing.T) {
	_, svc, _ := setupRequestsTest(t)

	_, err := svc.Latest(context.Background(), 0)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
