package inventory

import (
	"context"
	"fmt"

	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/campuscycles/pos-backend/pkg/enums"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
	"github.com/campuscycles/pos-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type actionRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entity enums.AuditEntity, entityID uuid.UUID, actorID uuid.UUID, description string) error
}

// Service is the stock ledger: every stock move funnels through AdjustStock,
// and every move in either direction runs the replenishment check.
type Service interface {
	AdjustStock(ctx context.Context, itemID uuid.UUID, delta int, actorID uuid.UUID) (*models.Item, error)
	IncreaseStock(ctx context.Context, itemID uuid.UUID, quantity int, actorID uuid.UUID) (*models.Item, error)
	DecreaseStock(ctx context.Context, itemID uuid.UUID, quantity int, actorID uuid.UUID) (*models.Item, error)
	AdjustStockTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, delta int, actorID uuid.UUID) (*models.Item, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	audit   actionRecorder
	metrics *metrics.PurchasingMetrics
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo Repository, tx txRunner, audit actionRecorder, m *metrics.PurchasingMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, audit: audit, metrics: m}, nil
}

func (s *service) AdjustStock(ctx context.Context, itemID uuid.UUID, delta int, actorID uuid.UUID) (*models.Item, error) {
	var item *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var innerErr error
		item, innerErr = s.AdjustStockTx(ctx, tx, itemID, delta, actorID)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) IncreaseStock(ctx context.Context, itemID uuid.UUID, quantity int, actorID uuid.UUID) (*models.Item, error) {
	return s.AdjustStock(ctx, itemID, quantity, actorID)
}

func (s *service) DecreaseStock(ctx context.Context, itemID uuid.UUID, quantity int, actorID uuid.UUID) (*models.Item, error) {
	return s.AdjustStock(ctx, itemID, -quantity, actorID)
}

// AdjustStockTx applies the delta inside the caller's transaction. Composite
// operations (request completion, order cascades) call this so the stock move
// lands in the same unit as the status flip that triggered it.
func (s *service) AdjustStockTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, delta int, actorID uuid.UUID) (*models.Item, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	repo := s.repo.WithTx(tx)

	affected, err := repo.AdjustStock(ctx, itemID, delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}

	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload item")
	}

	direction := "increase"
	if delta < 0 {
		direction = "decrease"
	}
	s.metrics.IncStockAdjustment(direction)

	if err := s.ensureReplenishment(ctx, tx, item, actorID); err != nil {
		return nil, err
	}
	return item, nil
}

// ensureReplenishment creates or widens a replenishment request when stock
// sits below the item's desired level. An existing active request is widened
// monotonically: its quantity only ever grows, never shrinks.
func (s *service) ensureReplenishment(ctx context.Context, tx *gorm.DB, item *models.Item, actorID uuid.UUID) error {
	if item.DesiredStock <= 0 || item.Stock >= item.DesiredStock {
		return nil
	}
	needed := item.DesiredStock - item.Stock

	repo := s.repo.WithTx(tx)

	existing, err := repo.FindActiveRequestForItem(ctx, item.ID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find active replenishment request")
	}

	if existing == nil {
		itemID := item.ID
		request := &models.OrderRequest{
			Request:  item.Name,
			Quantity: needed,
			Status:   enums.OrderStatusNotOrdered,
			ItemID:   &itemID,
		}
		if err := repo.CreateRequest(ctx, request); err != nil {
			s.metrics.IncReplenishment("failed")
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create replenishment request")
		}
		s.metrics.IncReplenishment("created")
		return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, request.ID, actorID,
			fmt.Sprintf("Automatically created request for %d units of %s", needed, item.Name))
	}

	if existing.Quantity >= needed {
		s.metrics.IncReplenishment("skipped")
		return nil
	}

	if err := repo.UpdateRequestQuantity(ctx, existing.ID, needed); err != nil {
		s.metrics.IncReplenishment("failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "widen replenishment request")
	}
	if existing.OrderID != nil {
		delta := item.WholesaleCost.Mul(decimal.NewFromInt(int64(needed - existing.Quantity)))
		if err := repo.AdjustOrderTotal(ctx, *existing.OrderID, delta); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
		}
	}
	s.metrics.IncReplenishment("widened")
	return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, existing.ID, actorID,
		fmt.Sprintf("Automatically raised requested quantity from %d to %d", existing.Quantity, needed))
}
