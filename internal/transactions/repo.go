package transactions

import (
	"context"

	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages the purchasing-facing slice of transactions: concrete
// item lines and the waiting-list link rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	AddItemLine(ctx context.Context, line *models.TransactionItem) error
	RemoveOneItemLine(ctx context.Context, transactionID, itemID uuid.UUID) (bool, error)
	AddWaitingLink(ctx context.Context, link *models.WaitingPartLink) error
	RemoveOneWaitingLink(ctx context.Context, transactionID, requestID uuid.UUID) (bool, error)
	CountWaiting(ctx context.Context, transactionID uuid.UUID) (int64, error)
	ListWaiting(ctx context.Context, transactionID uuid.UUID) ([]models.WaitingPartLink, error)
	MarkComplete(ctx context.Context, transactionID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) AddItemLine(ctx context.Context, line *models.TransactionItem) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// RemoveOneItemLine deletes the most recent line for the item, leaving any
// earlier duplicates in place.
func (r *repository) RemoveOneItemLine(ctx context.Context, transactionID, itemID uuid.UUID) (bool, error) {
	var line models.TransactionItem
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND item_id = ?", transactionID, itemID).
		Order("created_at DESC").
		First(&line).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	if err := r.db.WithContext(ctx).Delete(&models.TransactionItem{}, "id = ?", line.ID).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) AddWaitingLink(ctx context.Context, link *models.WaitingPartLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// RemoveOneWaitingLink deletes a single occurrence of the pair; a transaction
// waiting on two units of the same request keeps its second row.
func (r *repository) RemoveOneWaitingLink(ctx context.Context, transactionID, requestID uuid.UUID) (bool, error) {
	var link models.WaitingPartLink
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND order_request_id = ?", transactionID, requestID).
		Order("created_at DESC").
		First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	if err := r.db.WithContext(ctx).Delete(&models.WaitingPartLink{}, "id = ?", link.ID).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) CountWaiting(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WaitingPartLink{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListWaiting(ctx context.Context, transactionID uuid.UUID) ([]models.WaitingPartLink, error) {
	var links []models.WaitingPartLink
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repository) MarkComplete(ctx context.Context, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Updates(map[string]any{
			"complete":       true,
			"date_completed": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
