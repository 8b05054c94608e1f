package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a stocked product. Managed items (such as the synthetic Sales Tax
// line) belong to the purchasing subsystem exclusively and must not be
// touched by ordinary transaction editing.
type Item struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Category      *string         `gorm:"column:category"`
	Brand         *string         `gorm:"column:brand"`
	Size          *string         `gorm:"column:size"`
	Condition     string          `gorm:"column:condition;not null;default:'New'"`
	StandardPrice decimal.Decimal `gorm:"column:standard_price;type:numeric(10,2);not null"`
	WholesaleCost decimal.Decimal `gorm:"column:wholesale_cost;type:numeric(10,2);not null"`
	Stock         int             `gorm:"column:stock;not null;default:0"`
	DesiredStock  int             `gorm:"column:desired_stock;not null;default:0"`
	MinimumStock  *int            `gorm:"column:minimum_stock"`
	Disabled      bool            `gorm:"column:disabled;not null;default:false"`
	Managed       bool            `gorm:"column:managed;not null;default:false"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
