package orders

import (
	"context"
	"testing"
	"time"

	"github.com/campuscycles/pos-backend/internal/audit"
	"github.com/campuscycles/pos-backend/internal/inventory"
	"github.com/campuscycles/pos-backend/internal/orderrequests"
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

func setupOrdersTest(t *testing.T) (*gorm.DB, Service, uuid.UUID) {
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

	actor := &models.User{Username: "manager"}
	require.NoError(t, db.Create(actor).Error)

	runner := testTxRunner{db: db}
	auditSvc, err := audit.NewService(audit.NewRepository(db), users.NewRepository(db))
	require.NoError(t, err)
	invSvc, err := inventory.NewService(inventory.NewRepository(db), runner, auditSvc, nil)
	require.NoError(t, err)
	txnSvc, err := transactions.NewService(transactions.NewRepository(db), runner, auditSvc,
		config.PricingConfig{EmployeePriceMultiplier: 1.1}, nil)
	require.NoError(t, err)
	requestSvc, err := orderrequests.NewService(orderrequests.NewRepository(db), runner, auditSvc, invSvc, txnSvc)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), runner, requestSvc)
	require.NoError(t, err)

	return db, svc, actor.ID
}

func seedRequest(t *testing.T, db *gorm.DB, quantity int, wholesale int64) (*models.OrderRequest, *models.Item) {
	t.Helper()
	item := &models.Item{
		Name:          "Part",
		StandardPrice: decimal.NewFromInt(wholesale * 2),
		WholesaleCost: decimal.NewFromInt(wholesale),
	}
	require.NoError(t, db.Create(item).Error)

	itemID := item.ID
	request := &models.OrderRequest{
		Request:  item.Name,
		Quantity: quantity,
		Status:   enums.OrderStatusNotOrdered,
		ItemID:   &itemID,
	}
	require.NoError(t, db.Create(request).Error)
	return request, item
}

func TestCreate_StartsInCart(t *testing.T) {
	db, svc, actor := setupOrdersTest(t)

	order, err := svc.Create(context.Background(), "QBP", actor)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusInCart, order.Status)
	require.True(t, order.TotalPrice.Equal(decimal.Zero))

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestAttachRequest_AdoptsOrderStateAndTotal(t *testing.T) {
	db, svc, actor := setupOrdersTest(t)

	order, err := svc.Create(context.Background(), "QBP", actor)
	require.NoError(t, err)
	request, _ := seedRequest(t, db, 3, 10)

	require.NoError(t, svc.AttachRequest(context.Background(), order.ID, request.ID, actor))

	var reloaded models.OrderRequest
	require.NoError(t, db.First(&reloaded, "id = ?", request.ID).Error)
	require.Equal(t, order.ID, *reloaded.OrderID)
	require.Equal(t, enums.OrderStatusInCart, reloaded.Status)
	require.Equal(t, "QBP", *reloaded.Supplier)
	require.NotNil(t, reloaded.AttachedAt)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	require.True(t, reloadedOrder.TotalPrice.Equal(decimal.NewFromInt(30)),
		"total = %s", reloadedOrder.TotalPrice)
}

func TestAttachRequest_Guards(t *testing.T) {
	db, svc, actor := setupOrdersTest(t)

	order, err := svc.Create(context.Background(), "QBP", actor)
	require.NoError(t, err)

	attached, _ := seedRequest(t, db, 1, 5)
	require.NoError(t, svc.AttachRequest(context.Background(), order.ID, attached.ID, actor))

	noItem := &models.OrderRequest{Request: "Unknown part", Quantity: 1}
	require.NoError(t, db.Create(noItem).Error)

	zeroQty, _ := seedRequest(t, db, 0, 5)

	cases := []struct {
		name      string
		requestID uuid.UUID
	}{
		{"already attached", attached.ID},
		{"no item assigned", noItem.ID},
		{"zero quantity", zeroQty.ID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.AttachRequest(context.Background(), order.ID, tc.requestID, actor)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
		})
	}
}

func TestAttachDetach_RestoresTotalExactly(t *testing.T) {
	db, svc, actor := setupOrdersTest(t)

	order, err := svc.Create(context.Background(), "J&B", actor)
	require.NoError(t, err)
	require.NoError(t, svc.SetFreightCharge(context.Background(), order.ID, decimal.NewFromFloat(12.50), actor))

	var before models.Order
	require.NoError(t, db.First(&before, "id = ?", order.ID).Error)

	request, _ := seedRequest(t, db, 2, 17)
	require.NoError(t, svc.AttachRequest(context.Background(), order.ID, request.ID, actor))
	require.NoError(t, svc.DetachRequest(context.Background(), order.ID, request.ID, actor))

	var after models.Order
	require.NoError(t, db.First(&after, "id = ?", order.ID).Error)
	require.True(t, after.TotalPrice.Equal(before.TotalPrice),
		"total %s != %s", after.TotalPrice, before.TotalPrice)

	var reloaded models.OrderRequest
	require.NoError(t, db.First(&reloaded, "id = ?", request.ID).Error)
	require.Nil(t, reloaded.OrderID)
	require.Equal(t, enums.OrderStatusNotOrdered, reloaded.Status)
}

func TestSetStatus_DatesAndCascade(t *testing.T) {
	db, svc, actor := setupOrdersTest(t)

	order, err := svc.Create(context.Background(), "QBP", actor)
	require.NoError(t, err)
	request, item := seedRequest(t, db, 4, 10)
	require.NoError(t, svc.AttachRequest(context.Background(), order.ID, request.ID, actor))

	require.NoError(t, svc.SetStatus(context.Background(), order.ID, enums.OrderStatusOrdered, actor))

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	require.NotNil(t, reloadedOrder.DateSubmitted)
	require.Nil(t, reloadedOrder.DateCompleted)

	var reloadedRequest models.OrderRequest
	require.NoError(t, db.First(&reloadedRequest, "id = ?", request.ID).Error)
	require.Equal(t, enums.OrderStatusOrdered, reloadedRequest.Status)

	require.NoError(t, svc.SetStatus(context.Background(), order.ID, enums.OrderStatusCompleted, actor))

	require.NoError(t, db.First(&reloadedOrder, "id = ?", order.ID).Error)
	require.NotNil(t, reloadedOrder.DateCompleted)
	require.NoError(t, db.First(&reloadedRequest, "id = ?", request.ID).Error)
	require.Equal(t, enums.OrderStatusCompleted, reloadedRequest.Status)

	// Completion moved stock by the member quantity.
	var reloadedItem models.Item
	require.NoError(t, db.First(&reloadedItem, "id = ?", item.ID).Error)
	require.Equal(t, 4, reloadedItem.Stock)

	// Backing out clears the completion date and reverses the stock move.
	require.NoError(t, svc.SetStatus(context.Background(), order.ID, enums.OrderStatusInCart, actor))
	// Reload into a fresh struct: gorm leaves stale pointer fields in place
	// when scanning NULL columns into a reused destination.
	var backedOutOrder models.Order
	require.NoError(t, db.First(&backedOutOrder, "id = ?", order.ID).Error)
	require.Nil(t, backedOutOrder.DateSubmitted)
	require.Nil(t, backedOutOrder.DateCompleted)
	require.NoError(t, db.First(&reloadedItem, "id = ?", item.ID).Error)
	require.Equal(t, 0, reloadedItem.Stock)
}

func TestSetStatus_RejectsNotOrdered(t *testing.T) {
	_, svc, actor := setupOrdersTest(t)

	err := svc.SetStatus(context.Background(), uuid.New(), enums.OrderStatusNotOrdered, actor)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSetFreightCharge_MovesTotalByDelta(t *testing.T) {
	db, svc, actor := setupOrdersTest(t)

	order, err := svc.Create(context.Background(), "QBP", actor)
	require.NoError(t, err)

	require.NoError(t, svc.SetFreightCharge(context.Background(), order.ID, decimal.NewFromInt(20), actor))
	require.NoError(t, svc.SetFreightCharge(context.Background(), order.ID, decimal.NewFromInt(5), actor))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	require.True(t, reloaded.FreightCharge.Equal(decimal.NewFromInt(5)))
	require.True(t, reloaded.TotalPrice.Equal(decimal.NewFromInt(5)),
		"total = %s", reloaded.TotalPrice)
}

func TestSetSupplier_MirrorsToMembers(t *testing.T) {
	db, svc, actor := setupOrdersTest(t)

	order, err := svc.Create(context.Background(), "QBP", actor)
	require.NoError(t, err)
	request, _ := seedRequest(t, db, 1, 8)
	require.NoError(t, svc.AttachRequest(context.Background(), order.ID, request.ID, actor))

	require.NoError(t, svc.SetSupplier(context.Background(), order.ID, "J&B", actor))

	var reloaded models.OrderRequest
	require.NoError(t, db.First(&reloaded, "id = ?", request.ID).Error)
	require.Equal(t, "J&B", *reloaded.Supplier)
}

func TestDelete_DetachesMembers(t *testing.T) {
	db, svc, actor := setupOrdersTest(t)

	order, err := svc.Create(context.Background(), "QBP", actor)
	require.NoError(t, err)
	request, _ := seedRequest(t, db, 2, 10)
	require.NoError(t, svc.AttachRequest(context.Background(), order.ID, request.ID, actor))

	require.NoError(t, svc.Delete(context.Background(), order.ID, actor))

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Equal(t, int64(0), orderCount)

	var reloaded models.OrderRequest
	require.NoError(t, db.First(&reloaded, "id = ?", request.ID).Error)
	require.Nil(t, reloaded.OrderID)
	require.Equal(t, enums.OrderStatusNotOrdered, reloaded.Status)
}

func TestListByDateRange(t *testing.T) {
	db, svc, actor := setupOrdersTest(t)

	recent, err := svc.Create(context.Background(), "QBP", actor)
	require.NoError(t, err)

	old := &models.Order{
		Supplier:    "J&B",
		Status:      enums.OrderStatusCompleted,
		DateCreated: time.Now().AddDate(0, -2, 0),
	}
	require.NoError(t, db.Create(old).Error)

	orders, err := svc.ListByDateRange(context.Background(),
		time.Now().AddDate(0, 0, -7), time.Now().AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, recent.ID, orders[0].ID)

	_, err = svc.ListByDateRange(context.Background(), time.Now(), time.Now().AddDate(0, 0, -1))
	require.Error(t, err)
}
