package transactions

import (
	"context"
	"testing"

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

type recorderStub struct {
	entries []string
}

func (r *recorderStub) Record(ctx context.Context, tx *gorm.DB, entity enums.AuditEntity, entityID uuid.UUID, actorID uuid.UUID, description string) error {
	r.entries = append(r.entries, description)
	return nil
}

func setupTransactionsTest(t *testing.T) (*gorm.DB, Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Item{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.WaitingPartLink{},
	))

	pricing := config.PricingConfig{EmployeePriceMultiplier: 1.1}
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, &recorderStub{}, pricing, nil)
	require.NoError(t, err)
	return db, svc
}

func TestFulfill_EmployeePricing(t *testing.T) {
	db, svc := setupTransactionsTest(t)

	item := &models.Item{
		Name:          "Crankset",
		StandardPrice: decimal.NewFromInt(50),
		WholesaleCost: decimal.NewFromInt(20),
	}
	require.NoError(t, db.Create(item).Error)

	txn := &models.Transaction{Employee: true}
	require.NoError(t, db.Create(txn).Error)

	requestID := uuid.New()
	require.NoError(t, db.Create(&models.WaitingPartLink{
		TransactionID:  txn.ID,
		OrderRequestID: requestID,
	}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.FulfillTx(context.Background(), tx, txn.ID, requestID, item)
	})
	require.NoError(t, err)

	var line models.TransactionItem
	require.NoError(t, db.First(&line, "transaction_id = ?", txn.ID).Error)
	require.True(t, line.Price.Equal(decimal.NewFromInt(22)), "price = %s", line.Price)

	var waiting int64
	require.NoError(t, db.Model(&models.WaitingPartLink{}).
		Where("transaction_id = ?", txn.ID).Count(&waiting).Error)
	require.Equal(t, int64(0), waiting)
}

func TestFulfill_StandardPricing(t *testing.T) {
	db, svc := setupTransactionsTest(t)

	item := &models.Item{
		Name:          "Bar tape",
		StandardPrice: decimal.NewFromInt(15),
		WholesaleCost: decimal.NewFromInt(6),
	}
	require.NoError(t, db.Create(item).Error)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	requestID := uuid.New()
	require.NoError(t, db.Create(&models.WaitingPartLink{
		TransactionID:  txn.ID,
		OrderRequestID: requestID,
	}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.FulfillTx(context.Background(), tx, txn.ID, requestID, item)
	})
	require.NoError(t, err)

	var line models.TransactionItem
	require.NoError(t, db.First(&line, "transaction_id = ?", txn.ID).Error)
	require.True(t, line.Price.Equal(decimal.NewFromInt(15)), "price = %s", line.Price)
}

func TestFulfill_NoWaitingLinkRejected(t *testing.T) {
	db, svc := setupTransactionsTest(t)

	item := &models.Item{Name: "Chain", StandardPrice: decimal.NewFromInt(25)}
	require.NoError(t, db.Create(item).Error)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.FulfillTx(context.Background(), tx, txn.ID, uuid.New(), item)
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var lines int64
	require.NoError(t, db.Model(&models.TransactionItem{}).
		Where("transaction_id = ?", txn.ID).Count(&lines).Error)
	require.Equal(t, int64(0), lines)
}

func TestUnfulfill_RestoresWaitingLink(t *testing.T) {
	db, svc := setupTransactionsTest(t)

	item := &models.Item{Name: "Cassette", StandardPrice: decimal.NewFromInt(40)}
	require.NoError(t, db.Create(item).Error)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)

	requestID := uuid.New()
	require.NoError(t, db.Create(&models.WaitingPartLink{
		TransactionID:  txn.ID,
		OrderRequestID: requestID,
	}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.FulfillTx(context.Background(), tx, txn.ID, requestID, item)
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.UnfulfillTx(context.Background(), tx, txn.ID, requestID, item)
	})
	require.NoError(t, err)

	var lines int64
	require.NoError(t, db.Model(&models.TransactionItem{}).
		Where("transaction_id = ?", txn.ID).Count(&lines).Error)
	require.Equal(t, int64(0), lines)

	var waiting int64
	require.NoError(t, db.Model(&models.WaitingPartLink{}).
		Where("transaction_id = ? AND order_request_id = ?", txn.ID, requestID).
		Count(&waiting).Error)
	require.Equal(t, int64(1), waiting)
}

func TestAddWaitingRequest_RejectsCompleteOrPaid(t *testing.T) {
	db, svc := setupTransactionsTest(t)

	complete := &models.Transaction{Complete: true}
	require.NoError(t, db.Create(complete).Error)
	paid := &models.Transaction{IsPaid: true}
	require.NoError(t, db.Create(paid).Error)

	for _, txn := range []*models.Transaction{complete, paid} {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.AddWaitingRequestTx(context.Background(), tx, txn.ID, uuid.New())
		})
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	}
}

func TestRemoveItem_ManagedItemRejected(t *testing.T) {
	db, svc := setupTransactionsTest(t)

	item := &models.Item{Name: "Sales Tax", Managed: true}
	require.NoError(t, db.Create(item).Error)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)
	require.NoError(t, db.Create(&models.TransactionItem{
		TransactionID: txn.ID,
		ItemID:        item.ID,
		Price:         decimal.NewFromInt(3),
	}).Error)

	err := svc.RemoveItem(context.Background(), txn.ID, item.ID, uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var lines int64
	require.NoError(t, db.Model(&models.TransactionItem{}).
		Where("transaction_id = ?", txn.ID).Count(&lines).Error)
	require.Equal(t, int64(1), lines)
}

func TestRemoveItem_RemovesOneOccurrence(t *testing.T) {
	db, svc := setupTransactionsTest(t)

	item := &models.Item{Name: "Spoke", StandardPrice: decimal.NewFromInt(2)}
	require.NoError(t, db.Create(item).Error)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&models.TransactionItem{
			TransactionID: txn.ID,
			ItemID:        item.ID,
			Price:         item.StandardPrice,
		}).Error)
	}

	require.NoError(t, svc.RemoveItem(context.Background(), txn.ID, item.ID, uuid.New()))

	var lines int64
	require.NoError(t, db.Model(&models.TransactionItem{}).
		Where("transaction_id = ?", txn.ID).Count(&lines).Error)
	require.Equal(t, int64(1), lines)
}

func TestComplete_BlockedWhileWaiting(t *testing.T) {
	db, svc := setupTransactionsTest(t)

	txn := &models.Transaction{}
	require.NoError(t, db.Create(txn).Error)
	require.NoError(t, db.Create(&models.WaitingPartLink{
		TransactionID:  txn.ID,
		OrderRequestID: uuid.New(),
	}).Error)

	err := svc.Complete(context.Background(), txn.ID, uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	require.NoError(t, db.Delete(&models.WaitingPartLink{}, "transaction_id = ?", txn.ID).Error)
	require.NoError(t, svc.Complete(context.Background(), txn.ID, uuid.New()))

	var reloaded models.Transaction
	require.NoError(t, db.First(&reloaded, "id = ?", txn.ID).Error)
	require.True(t, reloaded.Complete)
	require.NotNil(t, reloaded.DateCompleted)
}
