package transactions

import (
	"context"
	"fmt"

	"github.com/campuscycles/pos-backend/pkg/config"
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

// Service owns the transaction side of the waiting-list linkage. Fulfillment
// swaps a wait placeholder for a concrete priced line; the Tx variants run
// inside a caller-owned database transaction so request status cascades stay
// in one unit.
type Service interface {
	FulfillTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID, item *models.Item) error
	UnfulfillTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID, item *models.Item) error
	AddWaitingRequestTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID) error
	RemoveWaitingRequestTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID) error

	RemoveItem(ctx context.Context, transactionID, itemID uuid.UUID, actorID uuid.UUID) error
	Complete(ctx context.Context, transactionID uuid.UUID, actorID uuid.UUID) error
	WaitingCount(ctx context.Context, transactionID uuid.UUID) (int, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	audit   actionRecorder
	pricing config.PricingConfig
	metrics *metrics.PurchasingMetrics
}

// NewService builds a transaction service with the required dependencies.
func NewService(repo Repository, tx txRunner, audit actionRecorder, pricing config.PricingConfig, m *metrics.PurchasingMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, audit: audit, pricing: pricing, metrics: m}, nil
}

// FulfillTx appends a concrete purchased line for the item and clears one
// waiting-list occurrence of the request. The request's own historical link
// is untouched.
func (s *service) FulfillTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID, item *models.Item) error {
	if item == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item required for fulfillment")
	}
	repo := s.repo.WithTx(tx)

	txn, err := repo.FindTransaction(ctx, transactionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}

	line := &models.TransactionItem{
		TransactionID: txn.ID,
		ItemID:        item.ID,
		Price:         s.linePrice(txn, item),
	}
	if err := repo.AddItemLine(ctx, line); err != nil {
		s.metrics.IncFulfillment("failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add item line")
	}
	removed, err := repo.RemoveOneWaitingLink(ctx, transactionID, requestID)
	if err != nil {
		s.metrics.IncFulfillment("failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear waiting link")
	}
	if !removed {
		s.metrics.IncFulfillment("failed")
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction has no waiting link for request")
	}
	s.metrics.IncFulfillment("fulfilled")
	return nil
}

// UnfulfillTx reverses FulfillTx: one matching line comes off and the waiting
// link returns. Missing lines are tolerated so a retried reversal converges.
func (s *service) UnfulfillTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID, item *models.Item) error {
	if item == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item required for reversal")
	}
	repo := s.repo.WithTx(tx)

	if _, err := repo.FindTransaction(ctx, transactionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}

	if _, err := repo.RemoveOneItemLine(ctx, transactionID, item.ID); err != nil {
		s.metrics.IncFulfillment("failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove item line")
	}
	link := &models.WaitingPartLink{TransactionID: transactionID, OrderRequestID: requestID}
	if err := repo.AddWaitingLink(ctx, link); err != nil {
		s.metrics.IncFulfillment("failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore waiting link")
	}
	s.metrics.IncFulfillment("reversed")
	return nil
}

// AddWaitingRequestTx links the transaction to a request it is blocked on.
// Completed or paid transactions take no new links.
func (s *service) AddWaitingRequestTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID) error {
	repo := s.repo.WithTx(tx)

	txn, err := repo.FindTransaction(ctx, transactionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if txn.Complete || txn.IsPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is already complete or paid")
	}

	link := &models.WaitingPartLink{TransactionID: transactionID, OrderRequestID: requestID}
	if err := repo.AddWaitingLink(ctx, link); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add waiting link")
	}
	return nil
}

func (s *service) RemoveWaitingRequestTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	removed, err := repo.RemoveOneWaitingLink(ctx, transactionID, requestID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove waiting link")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction is not waiting on request")
	}
	return nil
}

// RemoveItem takes one concrete line off a transaction. Managed items belong
// to the purchasing subsystem and cannot be removed here.
func (s *service) RemoveItem(ctx context.Context, transactionID, itemID uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		txn, err := repo.FindTransaction(ctx, transactionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}
		if txn.Complete || txn.IsPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is already complete or paid")
		}

		var item models.Item
		if err := tx.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}
		if item.Managed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "managed items cannot be removed from a transaction")
		}

		removed, err := repo.RemoveOneItemLine(ctx, transactionID, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove item line")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item is not on transaction")
		}
		return s.audit.Record(ctx, tx, enums.AuditEntityTransaction, transactionID, actorID,
			fmt.Sprintf("Removed %s", item.Name))
	})
}

// Complete marks the transaction done. A non-empty waiting list blocks it;
// the waiting rows are the source of truth for that check.
func (s *service) Complete(ctx context.Context, transactionID uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		txn, err := repo.FindTransaction(ctx, transactionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}
		if txn.Complete {
			return nil
		}

		waiting, err := repo.CountWaiting(ctx, transactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count waiting links")
		}
		if waiting > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is still waiting on parts").
				WithDetails(map[string]any{"waiting": waiting})
		}

		if err := repo.MarkComplete(ctx, transactionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark transaction complete")
		}
		return s.audit.Record(ctx, tx, enums.AuditEntityTransaction, transactionID, actorID,
			"Marked transaction complete")
	})
}

func (s *service) WaitingCount(ctx context.Context, transactionID uuid.UUID) (int, error) {
	count, err := s.repo.CountWaiting(ctx, transactionID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count waiting links")
	}
	return int(count), nil
}

// linePrice applies employee pricing when the transaction is an employee sale
// and the item carries a positive wholesale cost; anything else sells at the
// standard retail price.
func (s *service) linePrice(txn *models.Transaction, item *models.Item) decimal.Decimal {
	if txn.Employee && item.WholesaleCost.IsPositive() {
		multiplier := decimal.NewFromFloat(s.pricing.EmployeePriceMultiplier)
		return item.WholesaleCost.Mul(multiplier).Round(2)
	}
	return item.StandardPrice
}
