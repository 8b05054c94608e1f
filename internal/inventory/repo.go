package inventory

import (
	"context"

	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/campuscycles/pos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository manages stock persistence and the replenishment-request rows the
// ledger creates on its own behalf.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int64, error)
	FindActiveRequestForItem(ctx context.Context, itemID uuid.UUID) (*models.OrderRequest, error)
	CreateRequest(ctx context.Context, request *models.OrderRequest) error
	UpdateRequestQuantity(ctx context.Context, requestID uuid.UUID, quantity int) error
	AdjustOrderTotal(ctx context.Context, orderID uuid.UUID, delta decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// AdjustStock moves stock in place so concurrent adjustments never clobber
// each other. Returns the affected row count; zero means the item is absent.
func (r *repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE items
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, delta, id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) FindActiveRequestForItem(ctx context.Context, itemID uuid.UUID) (*models.OrderRequest, error) {
	var request models.OrderRequest
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND status IN ?", itemID, []enums.OrderStatus{
			enums.OrderStatusNotOrdered,
			enums.OrderStatusInCart,
		}).
		Order("created_at ASC").
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) CreateRequest(ctx context.Context, request *models.OrderRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) UpdateRequestQuantity(ctx context.Context, requestID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ?", requestID).
		Update("quantity", quantity).Error
}

func (r *repository) AdjustOrderTotal(ctx context.Context, orderID uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET total_price = total_price + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, delta, orderID).Error
}
