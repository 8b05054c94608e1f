package orders

import (
	"context"
	"time"

	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository manages persistence for supplier orders and the membership
// fields on their requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindRequest(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error)
	ListMemberRequests(ctx context.Context, orderID uuid.UUID) ([]models.OrderRequest, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	AttachRequest(ctx context.Context, requestID, orderID uuid.UUID, supplier string, at time.Time) error
	DetachRequest(ctx context.Context, requestID uuid.UUID) error
	UpdateMemberSupplier(ctx context.Context, orderID uuid.UUID, supplier string) error
	AdjustTotal(ctx context.Context, orderID uuid.UUID, delta decimal.Decimal) error
	ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Requests", func(db *gorm.DB) *gorm.DB {
			return db.Order("attached_at DESC")
		}).
		Preload("Requests.Item").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error) {
	var request models.OrderRequest
	if err := r.db.WithContext(ctx).
		Preload("Item").
		First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListMemberRequests(ctx context.Context, orderID uuid.UUID) ([]models.OrderRequest, error) {
	var requests []models.OrderRequest
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Where("order_id = ?", orderID).
		Order("attached_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id).Error
}

func (r *repository) AttachRequest(ctx context.Context, requestID, orderID uuid.UUID, supplier string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ?", requestID).
		Updates(map[string]any{
			"order_id":    orderID,
			"supplier":    supplier,
			"attached_at": at,
		}).Error
}

// DetachRequest clears membership only. Supplier stays as a trace of where
// the part was last sourced; status is the caller's concern.
func (r *repository) DetachRequest(ctx context.Context, requestID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ?", requestID).
		Updates(map[string]any{
			"order_id":    nil,
			"attached_at": nil,
		}).Error
}

func (r *repository) UpdateMemberSupplier(ctx context.Context, orderID uuid.UUID, supplier string) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("order_id = ?", orderID).
		Update("supplier", supplier).Error
}

func (r *repository) AdjustTotal(ctx context.Context, orderID uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET total_price = total_price + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, delta, orderID).Error
}

func (r *repository) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("date_created >= ? AND date_created <= ?", from, to).
		Order("date_created DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
