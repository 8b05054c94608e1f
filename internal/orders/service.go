package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/campuscycles/pos-backend/pkg/enums"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RequestCascader applies a status transition to one request inside the
// caller's transaction, firing the completion or reversal side effects.
type RequestCascader interface {
	ApplyStatusTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, status enums.OrderStatus, actorID uuid.UUID) error
}

// Service groups order requests under supplier purchases. Status changes
// cascade down to every member; the running total moves with every membership
// or quantity mutation in the same transaction.
type Service interface {
	Create(ctx context.Context, supplier string, actorID uuid.UUID) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Order, error)
	AttachRequest(ctx context.Context, orderID, requestID uuid.UUID, actorID uuid.UUID) error
	DetachRequest(ctx context.Context, orderID, requestID uuid.UUID, actorID uuid.UUID) error
	SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actorID uuid.UUID) error
	SetFreightCharge(ctx context.Context, orderID uuid.UUID, charge decimal.Decimal, actorID uuid.UUID) error
	SetSupplier(ctx context.Context, orderID uuid.UUID, supplier string, actorID uuid.UUID) error
	SetTrackingNumber(ctx context.Context, orderID uuid.UUID, trackingNumber string, actorID uuid.UUID) error
	Delete(ctx context.Context, orderID uuid.UUID, actorID uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	requests RequestCascader
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, requests RequestCascader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if requests == nil {
		return nil, fmt.Errorf("request cascader required")
	}
	return &service{repo: repo, tx: tx, requests: requests}, nil
}

func (s *service) Create(ctx context.Context, supplier string, actorID uuid.UUID) (*models.Order, error) {
	if supplier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	order := &models.Order{
		Supplier: supplier,
		Status:   enums.OrderStatusInCart,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.Find(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}
	orders, err := s.repo.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// AttachRequest pulls a request into the order: it adopts the order's status
// and supplier, and its wholesale contribution joins the running total. An
// already-Completed order fulfills the request on the way in.
func (s *service) AttachRequest(ctx context.Context, orderID, requestID uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.mustFind(ctx, repo, orderID)
		if err != nil {
			return err
		}
		request, err := s.mustFindRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if request.OrderID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is already attached to an order")
		}
		if request.ItemID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request has no item assigned")
		}
		if request.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request quantity must be at least one")
		}

		if err := repo.AttachRequest(ctx, requestID, orderID, order.Supplier, time.Now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach request")
		}
		if err := s.requests.ApplyStatusTx(ctx, tx, requestID, order.Status, actorID); err != nil {
			return err
		}

		contribution := request.Item.WholesaleCost.Mul(decimal.NewFromInt(int64(request.Quantity)))
		if err := repo.AdjustTotal(ctx, orderID, contribution); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
		}
		return nil
	})
}

// DetachRequest is the inverse: membership cleared first so any replenishment
// widening triggered by the reversal no longer sees the request as attached,
// then the status drops to Not Ordered, un-fulfilling if needed.
func (s *service) DetachRequest(ctx context.Context, orderID, requestID uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.mustFind(ctx, repo, orderID); err != nil {
			return err
		}
		request, err := s.mustFindRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if request.OrderID == nil || *request.OrderID != orderID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not attached to this order")
		}

		if request.Item != nil {
			contribution := request.Item.WholesaleCost.Mul(decimal.NewFromInt(int64(request.Quantity)))
			if err := repo.AdjustTotal(ctx, orderID, contribution.Neg()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
			}
		}
		if err := repo.DetachRequest(ctx, requestID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach request")
		}
		return s.requests.ApplyStatusTx(ctx, tx, requestID, enums.OrderStatusNotOrdered, actorID)
	})
}

// SetStatus moves the order through its lifecycle and cascades the same
// status to every member request. The order row, including its submission
// and completion dates, is persisted before the cascade starts.
func (s *service) SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actorID uuid.UUID) error {
	if status != enums.OrderStatusInCart && status != enums.OrderStatusOrdered && status != enums.OrderStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.mustFind(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == status {
			return nil
		}

		now := time.Now()
		updates := map[string]any{"status": status}
		switch status {
		case enums.OrderStatusInCart:
			updates["date_submitted"] = nil
			updates["date_completed"] = nil
		case enums.OrderStatusOrdered:
			if order.DateSubmitted == nil {
				updates["date_submitted"] = now
			}
			updates["date_completed"] = nil
		case enums.OrderStatusCompleted:
			if order.DateSubmitted == nil {
				updates["date_submitted"] = now
			}
			updates["date_completed"] = now
		}
		if err := repo.Update(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		members, err := repo.ListMemberRequests(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list member requests")
		}
		committed := 0
		for _, member := range members {
			if err := s.requests.ApplyStatusTx(ctx, tx, member.ID, status, actorID); err != nil {
				return withStep(err, committed)
			}
			committed++
		}
		return nil
	})
}

func (s *service) SetFreightCharge(ctx context.Context, orderID uuid.UUID, charge decimal.Decimal, actorID uuid.UUID) error {
	if charge.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "freight charge cannot be negative")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.mustFind(ctx, repo, orderID)
		if err != nil {
			return err
		}

		delta := charge.Sub(order.FreightCharge)
		if err := repo.Update(ctx, orderID, map[string]any{"freight_charge": charge}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update freight charge")
		}
		if err := repo.AdjustTotal(ctx, orderID, delta); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
		}
		return nil
	})
}

// SetSupplier renames the supplier on the order and mirrors it onto every
// member request.
func (s *service) SetSupplier(ctx context.Context, orderID uuid.UUID, supplier string, actorID uuid.UUID) error {
	if supplier == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.mustFind(ctx, repo, orderID); err != nil {
			return err
		}
		if err := repo.Update(ctx, orderID, map[string]any{"supplier": supplier}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
		}
		if err := repo.UpdateMemberSupplier(ctx, orderID, supplier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mirror supplier to requests")
		}
		return nil
	})
}

func (s *service) SetTrackingNumber(ctx context.Context, orderID uuid.UUID, trackingNumber string, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.mustFind(ctx, repo, orderID); err != nil {
			return err
		}
		if err := repo.Update(ctx, orderID, map[string]any{"tracking_number": trackingNumber}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tracking number")
		}
		return nil
	})
}

// Delete detaches every member request before removing the order. Each
// detachment is attempted even when an earlier one fails so the caller sees
// every broken member at once; any failure rolls the whole unit back.
func (s *service) Delete(ctx context.Context, orderID uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.mustFind(ctx, repo, orderID); err != nil {
			return err
		}
		members, err := repo.ListMemberRequests(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list member requests")
		}

		var errs error
		committed := 0
		for _, member := range members {
			if err := repo.DetachRequest(ctx, member.ID); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if err := s.requests.ApplyStatusTx(ctx, tx, member.ID, enums.OrderStatusNotOrdered, actorID); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			committed++
		}
		if errs != nil {
			return withStep(pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "detach member requests"), committed)
		}

		if err := repo.Delete(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
}

func (s *service) mustFind(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.Find(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) mustFindRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.OrderRequest, error) {
	request, err := repo.FindRequest(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return request, nil
}

func withStep(err error, committed int) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.WithStep(committed)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cascade step failed").WithStep(committed)
}
