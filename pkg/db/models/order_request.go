package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuscycles/pos-backend/pkg/enums"
)

// OrderRequest is a unit of purchasing intent for one item. It starts as a
// free-text request for a part, is later assigned a concrete Item, and is
// finally grouped under a supplier Order. Once attached, the parent order's
// status changes drive the request's own status.
type OrderRequest struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Request    string            `gorm:"column:request;not null"`
	PartNumber *string           `gorm:"column:part_number"`
	Quantity   int               `gorm:"column:quantity;not null;default:0"`
	Status     enums.OrderStatus `gorm:"column:status;type:text;not null;default:'Not Ordered'"`
	Supplier   *string           `gorm:"column:supplier"`
	Notes      *string           `gorm:"column:notes"`
	ItemID     *uuid.UUID        `gorm:"column:item_id;type:uuid"`
	OrderID    *uuid.UUID        `gorm:"column:order_id;type:uuid"`
	AttachedAt *time.Time        `gorm:"column:attached_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Item *Item `gorm:"foreignKey:ItemID"`
	// Transactions is the request's transaction list. A transaction appears
	// once per unit it needs. Rows survive completion as a historical record
	// even after the transaction's own waiting-list entry is cleared.
	Transactions []RequestTransactionLink `gorm:"foreignKey:OrderRequestID;constraint:OnDelete:CASCADE"`

	// The back-reference to the parent Order is deliberately never preloaded
	// here. Resolve it one hop at a time to avoid a populate cycle.
}

func (r *OrderRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = enums.OrderStatusNotOrdered
	}
	return nil
}

// RequestTransactionLink records one unit of an order request needed by a
// transaction. Multiplicity is intentional: two rows for the same pair mean
// the sale needs two units.
type RequestTransactionLink struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderRequestID uuid.UUID `gorm:"column:order_request_id;type:uuid;not null;index"`
	TransactionID  uuid.UUID `gorm:"column:transaction_id;type:uuid;not null;index"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (l *RequestTransactionLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
