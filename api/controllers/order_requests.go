package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/campuscycles/pos-backend/api/middleware"
	"github.com/campuscycles/pos-backend/api/responses"
	"github.com/campuscycles/pos-backend/api/validators"
	"github.com/campuscycles/pos-backend/internal/audit"
	"github.com/campuscycles/pos-backend/internal/orderrequests"
	"github.com/campuscycles/pos-backend/pkg/enums"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
	"github.com/campuscycles/pos-backend/pkg/logger"
)

const maxLatestRequests = 100

type createOrderRequestBody struct {
	Request        string   `json:"request" validate:"required,max=500"`
	Quantity       int      `json:"quantity" validate:"min=0"`
	PartNumber     *string  `json:"part_number,omitempty" validate:"omitempty,max=120"`
	Supplier       *string  `json:"supplier,omitempty" validate:"omitempty,max=200"`
	Notes          *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ItemID         *string  `json:"item_id,omitempty" validate:"omitempty,uuid"`
	TransactionIDs []string `json:"transaction_ids,omitempty" validate:"omitempty,dive,uuid"`
}

type textFieldBody struct {
	Value string `json:"value" validate:"max=2000"`
}

type quantityBody struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

type assignItemBody struct {
	ItemID string `json:"item_id" validate:"required,uuid"`
}

type statusBody struct {
	Status string `json:"status" validate:"required"`
}

type transactionRefBody struct {
	TransactionID string `json:"transaction_id" validate:"required,uuid"`
}

// ListOrderRequests filters by status, supplier, and an active flag that keeps
// only requests still waiting to be grouped into an order.
func ListOrderRequests(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter orderrequests.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("supplier")); raw != "" {
			filter.Supplier = &raw
		}
		filter.ActiveOnly = strings.EqualFold(r.URL.Query().Get("active"), "true")

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CreateOrderRequest(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createOrderRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orderrequests.CreateInput{
			Description: validators.SanitizeString(body.Request, 500),
			Quantity:    body.Quantity,
			PartNumber:  body.PartNumber,
			Supplier:    body.Supplier,
			Notes:       body.Notes,
		}
		if body.ItemID != nil {
			itemID, err := uuid.Parse(*body.ItemID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
				return
			}
			input.ItemID = &itemID
		}
		for _, raw := range body.TransactionIDs {
			txnID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
				return
			}
			input.TransactionIDs = append(input.TransactionIDs, txnID)
		}

		request, err := svc.Create(r.Context(), input, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

func LatestOrderRequests(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, maxLatestRequests)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.Latest(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetOrderRequest(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func DeleteOrderRequest(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func UpdateRequestDescription(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return updateRequestText(svc, logg, func(r *http.Request, id uuid.UUID, value string, svc orderrequests.Service) error {
		return svc.SetDescription(r.Context(), id, value, middleware.ActorIDFromContext(r.Context()))
	})
}

func UpdateRequestPartNumber(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return updateRequestText(svc, logg, func(r *http.Request, id uuid.UUID, value string, svc orderrequests.Service) error {
		return svc.SetPartNumber(r.Context(), id, value, middleware.ActorIDFromContext(r.Context()))
	})
}

func UpdateRequestNotes(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return updateRequestText(svc, logg, func(r *http.Request, id uuid.UUID, value string, svc orderrequests.Service) error {
		return svc.SetNotes(r.Context(), id, value, middleware.ActorIDFromContext(r.Context()))
	})
}

func updateRequestText(svc orderrequests.Service, logg *logger.Logger, apply func(*http.Request, uuid.UUID, string, orderrequests.Service) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body textFieldBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := apply(r, id, validators.SanitizeString(body.Value, 2000), svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func UpdateRequestQuantity(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body quantityBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetQuantity(r.Context(), id, body.Quantity, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func AssignRequestItem(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body assignItemBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuid.Parse(body.ItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}
		if err := svc.AssignItem(r.Context(), id, itemID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func UpdateRequestStatus(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body statusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		if err := svc.SetStatus(r.Context(), id, status, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func AddRequestTransaction(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body transactionRefBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnID, err := uuid.Parse(body.TransactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}
		if err := svc.AddTransaction(r.Context(), id, txnID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "linked"})
	}
}

func RemoveRequestTransaction(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveTransaction(r.Context(), id, txnID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "unlinked"})
	}
}

// ListRequestActions returns the change history for a request, newest first.
func ListRequestActions(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actions, err := svc.List(r.Context(), enums.AuditEntityOrderRequest, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, actions)
	}
}
