package audit

import (
	"context"

	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/campuscycles/pos-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for audit actions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, action *models.Action) error
	ListByEntity(ctx context.Context, entity enums.AuditEntity, entityID uuid.UUID) ([]models.Action, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, action *models.Action) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *repository) ListByEntity(ctx context.Context, entity enums.AuditEntity, entityID uuid.UUID) ([]models.Action, error) {
	var actions []models.Action
	if err := r.db.WithContext(ctx).
		Preload("Employee").
		Where("entity_type = ? AND entity_id = ?", entity, entityID).
		Order("created_at DESC").
		Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}
