package middleware

import (
	"net/http"

	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
)

// RequireRoles filters requests by the actor role seeded from the access
// token. Supervisors pass every gate.
func RequireRoles(logg *logger.Logger, allowed ...enums.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allowed roles missing"))
				return
			}

			role := enums.ActorRole(RoleFromContext(r.Context()))
			if role == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing"))
				return
			}
			if role == enums.ActorRoleSupervisor {
				next.ServeHTTP(w, r)
				return
			}
			for _, candidate := range allowed {
				if role == candidate {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
		})
	}
}
