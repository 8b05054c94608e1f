package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/campuscycles/pos-backend/pkg/enums"
)

// Order groups order requests under one supplier purchase. TotalPrice is an
// incrementally maintained sum: each contained request's wholesale cost times
// its quantity, plus the freight charge. Every mutation that changes a
// member's quantity, item, or membership moves this sum in the same database
// transaction.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Supplier       string            `gorm:"column:supplier;not null"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null;default:'In Cart'"`
	TrackingNumber *string           `gorm:"column:tracking_number"`
	FreightCharge  decimal.Decimal   `gorm:"column:freight_charge;type:numeric(10,2);not null;default:0"`
	TotalPrice     decimal.Decimal   `gorm:"column:total_price;type:numeric(10,2);not null;default:0"`
	DateCreated    time.Time         `gorm:"column:date_created;not null"`
	DateSubmitted  *time.Time        `gorm:"column:date_submitted"`
	DateCompleted  *time.Time        `gorm:"column:date_completed"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	// Requests reads most-recently-attached first.
	Requests []OrderRequest `gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusInCart
	}
	if o.DateCreated.IsZero() {
		o.DateCreated = time.Now()
	}
	return nil
}
