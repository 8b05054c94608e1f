package orderrequests

import (
	"context"
	"fmt"

	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/campuscycles/pos-backend/pkg/enums"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
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

type stockLedger interface {
	AdjustStockTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, delta int, actorID uuid.UUID) (*models.Item, error)
}

type waitLinker interface {
	FulfillTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID, item *models.Item) error
	UnfulfillTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID, item *models.Item) error
	AddWaitingRequestTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID) error
	RemoveWaitingRequestTx(ctx context.Context, tx *gorm.DB, transactionID, requestID uuid.UUID) error
}

// CreateInput carries the fields accepted when opening a request.
type CreateInput struct {
	Description    string
	Quantity       int
	PartNumber     *string
	Supplier       *string
	Notes          *string
	ItemID         *uuid.UUID
	TransactionIDs []uuid.UUID
}

// Service drives the request lifecycle: quantity accounting, transaction
// linkage, and the completion state machine with its stock and fulfillment
// side effects.
type Service interface {
	Create(ctx context.Context, input CreateInput, actorID uuid.UUID) (*models.OrderRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error)
	List(ctx context.Context, filter ListFilter) ([]models.OrderRequest, error)
	Latest(ctx context.Context, limit int) ([]models.OrderRequest, error)
	SetDescription(ctx context.Context, id uuid.UUID, description string, actorID uuid.UUID) error
	SetPartNumber(ctx context.Context, id uuid.UUID, partNumber string, actorID uuid.UUID) error
	SetNotes(ctx context.Context, id uuid.UUID, notes string, actorID uuid.UUID) error
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int, actorID uuid.UUID) error
	AssignItem(ctx context.Context, id uuid.UUID, itemID uuid.UUID, actorID uuid.UUID) error
	AddTransaction(ctx context.Context, id uuid.UUID, transactionID uuid.UUID, actorID uuid.UUID) error
	RemoveTransaction(ctx context.Context, id uuid.UUID, transactionID uuid.UUID, actorID uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, actorID uuid.UUID) error
	ApplyStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.OrderStatus, actorID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
}

type service struct {
	repo  Repository
	tx    txRunner
	audit actionRecorder
	stock stockLedger
	links waitLinker
}

// NewService builds an order request service with the required dependencies.
func NewService(repo Repository, tx txRunner, audit actionRecorder, stock stockLedger, links waitLinker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order request repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if links == nil {
		return nil, fmt.Errorf("wait linker required")
	}
	return &service{repo: repo, tx: tx, audit: audit, stock: stock, links: links}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, actorID uuid.UUID) (*models.OrderRequest, error) {
	if input.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request description required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	var created *models.OrderRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if input.ItemID != nil {
			if _, err := repo.FindItem(ctx, *input.ItemID); err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve item")
			}
		}

		request := &models.OrderRequest{
			Request:    input.Description,
			PartNumber: input.PartNumber,
			Quantity:   input.Quantity,
			Status:     enums.OrderStatusNotOrdered,
			Supplier:   input.Supplier,
			Notes:      input.Notes,
			ItemID:     input.ItemID,
		}
		if err := repo.Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}

		for _, transactionID := range input.TransactionIDs {
			if err := s.links.AddWaitingRequestTx(ctx, tx, transactionID, request.ID); err != nil {
				return err
			}
			link := &models.RequestTransactionLink{
				OrderRequestID: request.ID,
				TransactionID:  transactionID,
			}
			if err := repo.AddTransactionLink(ctx, link); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link transaction")
			}
		}

		created = request
		return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, request.ID, actorID,
			fmt.Sprintf("Created request for %q", input.Description))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error) {
	request, err := s.repo.Find(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return request, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.OrderRequest, error) {
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	return requests, nil
}

func (s *service) Latest(ctx context.Context, limit int) ([]models.OrderRequest, error) {
	if limit < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}
	requests, err := s.repo.Latest(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list latest requests")
	}
	return requests, nil
}

func (s *service) SetDescription(ctx context.Context, id uuid.UUID, description string, actorID uuid.UUID) error {
	if description == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "request description required")
	}
	return s.updateField(ctx, id, actorID, map[string]any{"request": description},
		fmt.Sprintf("Changed description to %q", description))
}

func (s *service) SetPartNumber(ctx context.Context, id uuid.UUID, partNumber string, actorID uuid.UUID) error {
	return s.updateField(ctx, id, actorID, map[string]any{"part_number": partNumber},
		fmt.Sprintf("Changed part number to %q", partNumber))
}

func (s *service) SetNotes(ctx context.Context, id uuid.UUID, notes string, actorID uuid.UUID) error {
	return s.updateField(ctx, id, actorID, map[string]any{"notes": notes}, "Updated notes")
}

func (s *service) updateField(ctx context.Context, id uuid.UUID, actorID uuid.UUID, updates map[string]any, description string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.mustFind(ctx, repo, id); err != nil {
			return err
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
		}
		return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, id, actorID, description)
	})
}

// SetQuantity changes the requested unit count. The new value may never fall
// below the number of outstanding transaction links.
func (s *service) SetQuantity(ctx context.Context, id uuid.UUID, quantity int, actorID uuid.UUID) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := s.mustFind(ctx, repo, id)
		if err != nil {
			return err
		}
		if request.Status == enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "completed requests cannot be changed")
		}

		linked, err := repo.CountTransactionLinks(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count transaction links")
		}
		if int64(quantity) < linked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quantity cannot drop below linked transaction count").
				WithDetails(map[string]any{"linked": linked})
		}

		if request.OrderID != nil && request.Item != nil {
			delta := request.Item.WholesaleCost.Mul(decimal.NewFromInt(int64(quantity - request.Quantity)))
			if err := repo.AdjustOrderTotal(ctx, *request.OrderID, delta); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
			}
		}
		if err := repo.Update(ctx, id, map[string]any{"quantity": quantity}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quantity")
		}
		return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, id, actorID,
			fmt.Sprintf("Changed quantity from %d to %d", request.Quantity, quantity))
	})
}

func (s *service) AssignItem(ctx context.Context, id uuid.UUID, itemID uuid.UUID, actorID uuid.UUID) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := s.mustFind(ctx, repo, id)
		if err != nil {
			return err
		}
		if request.Status == enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "completed requests cannot be changed")
		}

		item, err := repo.FindItem(ctx, itemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}

		if request.OrderID != nil {
			oldCost := decimal.Zero
			if request.Item != nil {
				oldCost = request.Item.WholesaleCost
			}
			delta := item.WholesaleCost.Sub(oldCost).Mul(decimal.NewFromInt(int64(request.Quantity)))
			if err := repo.AdjustOrderTotal(ctx, *request.OrderID, delta); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
			}
		}
		if err := repo.Update(ctx, id, map[string]any{"item_id": itemID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign item")
		}
		return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, id, actorID,
			fmt.Sprintf("Assigned item %s", item.Name))
	})
}

// AddTransaction is the only path where quantity and transaction linkage grow
// together: one more unit needed, one more link on each side, one more unit
// of wholesale cost on the attached order.
func (s *service) AddTransaction(ctx context.Context, id uuid.UUID, transactionID uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := s.mustFind(ctx, repo, id)
		if err != nil {
			return err
		}
		if request.Status == enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "completed requests cannot take new transactions")
		}

		if err := s.links.AddWaitingRequestTx(ctx, tx, transactionID, id); err != nil {
			return err
		}
		link := &models.RequestTransactionLink{OrderRequestID: id, TransactionID: transactionID}
		if err := repo.AddTransactionLink(ctx, link); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link transaction")
		}

		if err := repo.Update(ctx, id, map[string]any{"quantity": request.Quantity + 1}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment quantity")
		}
		if request.OrderID != nil && request.Item != nil {
			if err := repo.AdjustOrderTotal(ctx, *request.OrderID, request.Item.WholesaleCost); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
			}
		}
		return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, id, actorID,
			fmt.Sprintf("Linked transaction %s, quantity now %d", transactionID, request.Quantity+1))
	})
}

// RemoveTransaction undoes one AddTransaction. Dropping the last link with
// quantity at zero deletes the request outright rather than leaving an empty
// shell behind.
func (s *service) RemoveTransaction(ctx context.Context, id uuid.UUID, transactionID uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := s.mustFind(ctx, repo, id)
		if err != nil {
			return err
		}
		if request.Status == enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "completed requests cannot be changed")
		}

		removed, err := repo.RemoveOneTransactionLink(ctx, id, transactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlink transaction")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction is not linked to request")
		}
		if err := s.links.RemoveWaitingRequestTx(ctx, tx, transactionID, id); err != nil {
			return err
		}

		quantity := request.Quantity - 1
		if request.OrderID != nil && request.Item != nil {
			if err := repo.AdjustOrderTotal(ctx, *request.OrderID, request.Item.WholesaleCost.Neg()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
			}
		}

		if quantity <= 0 {
			if err := repo.DeleteTransactionLinks(ctx, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear transaction links")
			}
			if err := repo.Delete(ctx, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete request")
			}
			return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, id, actorID,
				"Removed last transaction, request deleted")
		}

		if err := repo.Update(ctx, id, map[string]any{"quantity": quantity}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement quantity")
		}
		return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, id, actorID,
			fmt.Sprintf("Unlinked transaction %s, quantity now %d", transactionID, quantity))
	})
}

// SetStatus changes the status of an unattached request. Attached requests
// follow their order; their status is never set directly.
func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		request, err := s.mustFind(ctx, s.repo.WithTx(tx), id)
		if err != nil {
			return err
		}
		if request.OrderID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status is driven by the containing order")
		}
		return s.ApplyStatusTx(ctx, tx, id, status, actorID)
	})
}

// ApplyStatusTx is the core transition function. Crossing the Completed
// boundary fires the side effects: stock moves by the request quantity and
// every linked transaction swaps its wait placeholder for a concrete line
// (or back again on reversal). The status flip is persisted before anything
// else so a concurrent stock adjustment never spawns a duplicate
// replenishment request mid-cascade.
func (s *service) ApplyStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.OrderStatus, actorID uuid.UUID) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	repo := s.repo.WithTx(tx)

	request, err := s.mustFind(ctx, repo, id)
	if err != nil {
		return err
	}
	if request.Status == status {
		return nil
	}

	wasCompleted := request.Status == enums.OrderStatusCompleted
	willComplete := status == enums.OrderStatusCompleted
	if willComplete && request.ItemID == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot complete a request with no item")
	}

	if err := repo.Update(ctx, id, map[string]any{"status": status}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update status")
	}

	committed := 0
	switch {
	case willComplete && !wasCompleted:
		item, err := s.stock.AdjustStockTx(ctx, tx, *request.ItemID, request.Quantity, actorID)
		if err != nil {
			return withStep(err, committed)
		}
		committed++
		for _, link := range request.Transactions {
			if err := s.links.FulfillTx(ctx, tx, link.TransactionID, id, item); err != nil {
				return withStep(err, committed)
			}
			committed++
		}
	case wasCompleted && !willComplete:
		var item *models.Item
		if request.ItemID != nil {
			item, err = s.stock.AdjustStockTx(ctx, tx, *request.ItemID, -request.Quantity, actorID)
			if err != nil {
				return withStep(err, committed)
			}
			committed++
		}
		for _, link := range request.Transactions {
			if err := s.links.UnfulfillTx(ctx, tx, link.TransactionID, id, item); err != nil {
				return withStep(err, committed)
			}
			committed++
		}
	}

	return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, id, actorID,
		fmt.Sprintf("Changed status from %s to %s", request.Status, status))
}

// Delete removes the request. Completed requests deliberately leave their
// historical transaction-side state alone; the forward waiting links were
// already cleared at completion.
func (s *service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := s.mustFind(ctx, repo, id)
		if err != nil {
			return err
		}

		if request.OrderID != nil && request.Item != nil {
			contribution := request.Item.WholesaleCost.Mul(decimal.NewFromInt(int64(request.Quantity)))
			if err := repo.AdjustOrderTotal(ctx, *request.OrderID, contribution.Neg()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
			}
		}

		if request.Status != enums.OrderStatusCompleted {
			for _, link := range request.Transactions {
				if err := s.links.RemoveWaitingRequestTx(ctx, tx, link.TransactionID, id); err != nil {
					return err
				}
			}
		}

		if err := repo.DeleteTransactionLinks(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear transaction links")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete request")
		}
		return s.audit.Record(ctx, tx, enums.AuditEntityOrderRequest, id, actorID, "Deleted request")
	})
}

func (s *service) mustFind(ctx context.Context, repo Repository, id uuid.UUID) (*models.OrderRequest, error) {
	request, err := repo.Find(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return request, nil
}

// withStep annotates a cascade failure with how many side-effect steps had
// already run when it broke.
func withStep(err error, committed int) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.WithStep(committed)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cascade step failed").WithStep(committed)
}
