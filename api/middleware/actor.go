package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/campuscycles/pos-backend/api/responses"
	pkgerrors "github.com/campuscycles/pos-backend/pkg/errors"
	"github.com/campuscycles/pos-backend/pkg/logger"
)

const actorIDHeader = "User-Id"

// RequireActor demands the acting employee id on every mutating request it
// guards. Reads pass through, though a well-formed header is still attached
// to the context when present. The id only has to be well formed here;
// resolution against the user table happens when an action is recorded,
// before any mutation commits.
func RequireActor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if raw == "" && !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if raw == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "User-Id header required"))
				return
			}
			actorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "User-Id header is not a valid id"))
				return
			}

			ctx := WithActorID(r.Context(), actorID)
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
