package orderrequests

import (
	"context"

	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/campuscycles/pos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListFilter narrows request listings.
type ListFilter struct {
	Status   *enums.OrderStatus
	Supplier *string
	// ActiveOnly keeps requests still waiting to be grouped into an order
	// (Not Ordered or In Cart).
	ActiveOnly bool
}

// Repository manages persistence for order requests and their transaction
// link rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.OrderRequest) error
	Find(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error)
	FindItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]models.OrderRequest, error)
	Latest(ctx context.Context, limit int) ([]models.OrderRequest, error)
	AddTransactionLink(ctx context.Context, link *models.RequestTransactionLink) error
	RemoveOneTransactionLink(ctx context.Context, requestID, transactionID uuid.UUID) (bool, error)
	DeleteTransactionLinks(ctx context.Context, requestID uuid.UUID) error
	CountTransactionLinks(ctx context.Context, requestID uuid.UUID) (int64, error)
	AdjustOrderTotal(ctx context.Context, orderID uuid.UUID, delta decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.OrderRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error) {
	var request models.OrderRequest
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.OrderRequest{}, "id = ?", id).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.OrderRequest, error) {
	query := r.db.WithContext(ctx).Preload("Item")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Supplier != nil {
		query = query.Where("supplier = ?", *filter.Supplier)
	}
	if filter.ActiveOnly {
		query = query.Where("status IN ?", []enums.OrderStatus{
			enums.OrderStatusNotOrdered,
			enums.OrderStatusInCart,
		})
	}

	var requests []models.OrderRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) Latest(ctx context.Context, limit int) ([]models.OrderRequest, error) {
	var requests []models.OrderRequest
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Order("created_at DESC").
		Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) AddTransactionLink(ctx context.Context, link *models.RequestTransactionLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// RemoveOneTransactionLink deletes a single occurrence of the pair; a sale
// that needs two units of the same part loses only one row.
func (r *repository) RemoveOneTransactionLink(ctx context.Context, requestID, transactionID uuid.UUID) (bool, error) {
	var link models.RequestTransactionLink
	err := r.db.WithContext(ctx).
		Where("order_request_id = ? AND transaction_id = ?", requestID, transactionID).
		Order("created_at DESC").
		First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	if err := r.db.WithContext(ctx).Delete(&models.RequestTransactionLink{}, "id = ?", link.ID).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) DeleteTransactionLinks(ctx context.Context, requestID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.RequestTransactionLink{}, "order_request_id = ?", requestID).Error
}

func (r *repository) CountTransactionLinks(ctx context.Context, requestID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RequestTransactionLink{}).
		Where("order_request_id = ?", requestID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) AdjustOrderTotal(ctx context.Context, orderID uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET total_price = total_price + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, delta, orderID).Error
}
