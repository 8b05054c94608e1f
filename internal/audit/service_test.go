package audit

import (
	"context"
	"testing"
	"time"

	"github.com/campuscycles/pos-backend/internal/users"
	"github.com/campuscycles/pos-backend/pkg/db/models"
	"github.com/campuscycles/pos-backend/pkg/enums"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuditTest(t *testing.T) (*gorm.DB, Service, uuid.UUID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Action{}))

	actor := &models.User{Username: "frontdesk"}
	require.NoError(t, db.Create(actor).Error)

	svc, err := NewService(NewRepository(db), users.NewRepository(db))
	require.NoError(t, err)
	return db, svc, actor.ID
}

func TestRecord_ResolvesActor(t *testing.T) {
	db, svc, actor := setupAuditTest(t)

	entityID := uuid.New()
	err := svc.Record(context.Background(), db, enums.AuditEntityOrderRequest, entityID, actor, "Created request")
	require.NoError(t, err)

	var action models.Action
	require.NoError(t, db.First(&action, "entity_id = ?", entityID).Error)
	require.Equal(t, actor, action.EmployeeID)
	require.Equal(t, "Created request", action.Description)
}

func TestRecord_UnknownActorRejected(t *testing.T) {
	db, svc, _ := setupAuditTest(t)

	err := svc.Record(context.Background(), db, enums.AuditEntityOrderRequest, uuid.New(), uuid.New(), "noop")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	err = svc.Record(context.Background(), db, enums.AuditEntityOrderRequest, uuid.New(), uuid.Nil, "noop")
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	var count int64
	require.NoError(t, db.Model(&models.Action{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestList_NewestFirst(t *testing.T) {
	db, svc, actor := setupAuditTest(t)

	entityID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i, description := range []string{"first", "second", "third"} {
		action := &models.Action{
			EntityType:  enums.AuditEntityTransaction,
			EntityID:    entityID,
			EmployeeID:  actor,
			Description: description,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(action).Error)
	}

	actions, err := svc.List(context.Background(), enums.AuditEntityTransaction, entityID)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	require.Equal(t, "third", actions[0].Description)
	require.Equal(t, "first", actions[2].Description)
	require.NotNil(t, actions[0].Employee)
	require.Equal(t, "frontdesk", actions[0].Employee.Username)
}
