package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is a sale or repair ticket. Only the purchasing-relevant
// surface lives here: the concrete purchased lines and the waiting list of
// order requests blocking completion.
type Transaction struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Description     string          `gorm:"column:description"`
	TransactionType string          `gorm:"column:transaction_type"`
	Employee        bool            `gorm:"column:employee;not null;default:false"`
	Complete        bool            `gorm:"column:complete;not null;default:false"`
	IsPaid          bool            `gorm:"column:is_paid;not null;default:false"`
	Urgent          bool            `gorm:"column:urgent;not null;default:false"`
	TotalCost       decimal.Decimal `gorm:"column:total_cost;type:numeric(10,2);not null;default:0"`
	DateCreated     time.Time       `gorm:"column:date_created;not null"`
	DateCompleted   *time.Time      `gorm:"column:date_completed"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Items []TransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	// WaitingRequests is the forward half of the transaction/request link.
	// Fulfillment deletes rows here while the request keeps its own
	// historical link, so the relationship goes one-directional after an
	// order request completes.
	WaitingRequests []WaitingPartLink `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.DateCreated.IsZero() {
		t.DateCreated = time.Now()
	}
	return nil
}

// TransactionItem is a concrete purchased line on a transaction. Price is
// captured at add time (standard or employee pricing).
type TransactionItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;index"`
	ItemID        uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`

	Item *Item `gorm:"foreignKey:ItemID"`
}

func (i *TransactionItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// WaitingPartLink marks a transaction as blocked on an order request.
type WaitingPartLink struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID  uuid.UUID `gorm:"column:transaction_id;type:uuid;not null;index"`
	OrderRequestID uuid.UUID `gorm:"column:order_request_id;type:uuid;not null;index"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (l *WaitingPartLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
