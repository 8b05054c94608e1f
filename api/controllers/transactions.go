package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/campuscycles/pos-backend/api/middleware"
	"github.com/campuscycles/pos-backend/api/responses"
	"github.com/campuscycles/pos-backend/api/validators"
	"github.com/campuscycles/pos-backend/internal/audit"
	"github.com/campuscycles/pos-backend/internal/orderrequests"
	"github.com/campuscycles/pos-backend/internal/transactions"
	"github.com/campuscycles/pos-backend/pkg/enums"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
	"github.com/campuscycles/pos-backend/pkg/logger"
)

type waitingRequestBody struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
}

func parseBodyUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id")
	}
	return id, nil
}

// AddTransactionWaitingRequest puts a transaction on a request's waiting list
// so completion of the request can push the part onto the sale. It goes through
// the request side so quantity, the request's transaction list, and the
// attached order total all move together with the waiting link.
func AddTransactionWaitingRequest(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body waitingRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := parseBodyUUID(body.RequestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.AddTransaction(r.Context(), requestID, txnID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "waiting"})
	}
}

func RemoveTransactionWaitingRequest(svc orderrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveTransaction(r.Context(), requestID, txnID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func RemoveTransactionItem(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveItem(r.Context(), txnID, itemID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// CompleteTransaction closes out a sale. Blocked while the transaction still
// waits on open requests.
func CompleteTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Complete(r.Context(), txnID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "complete"})
	}
}

func TransactionWaitingCount(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := svc.WaitingCount(r.Context(), txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"waiting": count})
	}
}

func ListTransactionActions(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actions, err := svc.List(r.Context(), enums.AuditEntityTransaction, txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, actions)
	}
}
