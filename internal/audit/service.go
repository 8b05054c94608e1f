package audit

import (
	"context"
	"fmt"

	"github.com/campuscycles/pos-backend/internal/users"
	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/campuscycles/pos-backend/pkg/enums"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service records who did what against order requests and transactions.
// Every write resolves the acting employee; an unknown or missing actor
// fails before anything is recorded.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entity enums.AuditEntity, entityID uuid.UUID, actorID uuid.UUID, description string) error
	List(ctx context.Context, entity enums.AuditEntity, entityID uuid.UUID) ([]models.Action, error)
}

type service struct {
	repo  Repository
	users users.Repository
}

// NewService builds an audit service with the required dependencies.
func NewService(repo Repository, userRepo users.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, users: userRepo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, entity enums.AuditEntity, entityID uuid.UUID, actorID uuid.UUID, description string) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !entity.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid audit entity")
	}
	if description == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit description required")
	}

	actor, err := s.users.WithTx(tx).FindByID(ctx, actorID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor not recognized")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve actor")
	}

	action := &models.Action{
		EntityType:  entity,
		EntityID:    entityID,
		EmployeeID:  actor.ID,
		Description: description,
	}
	if err := s.repo.WithTx(tx).Create(ctx, action); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record action")
	}
	return nil
}

func (s *service) List(ctx context.Context, entity enums.AuditEntity, entityID uuid.UUID) ([]models.Action, error) {
	if !entity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid audit entity")
	}
	actions, err := s.repo.ListByEntity(ctx, entity, entityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list actions")
	}
	return actions, nil
}
