package controllers

import (
	"net/http"

	"github.com/campuscycles/pos-backend/api/middleware"
	"github.com/campuscycles/pos-backend/api/responses"
	"github.com/campuscycles/pos-backend/api/validators"
	"github.com/campuscycles/pos-backend/internal/inventory"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
	"github.com/campuscycles/pos-backend/pkg/logger"
)

type stockAdjustmentBody struct {
	Delta int `json:"delta" validate:"required"`
}

// AdjustItemStock moves an item's on-hand count by a signed delta. Shortfalls
// against the desired stock level raise replenishment requests as a side
// effect.
func AdjustItemStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body stockAdjustmentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Delta == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero"))
			return
		}
		item, err := svc.AdjustStock(r.Context(), itemID, body.Delta, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
