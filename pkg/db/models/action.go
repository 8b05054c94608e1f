package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuscycles/pos-backend/pkg/enums"
)

// Action is one entry in an entity's audit log: who did what, when.
// Reads return newest first.
type Action struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	EntityType  enums.AuditEntity `gorm:"column:entity_type;type:text;not null;index:idx_actions_entity"`
	EntityID    uuid.UUID         `gorm:"column:entity_id;type:uuid;not null;index:idx_actions_entity"`
	EmployeeID  uuid.UUID         `gorm:"column:employee_id;type:uuid;not null"`
	Description string            `gorm:"column:description;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`

	Employee *User `gorm:"foreignKey:EmployeeID"`
}

func (a *Action) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
