package middleware

import (
	"net/http"

	"github.com/biblionet/biblionet-backend/api/responses"
	pkgAuth "github.com/biblionet/biblionet-backend/pkg/auth"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

const msgForbidden = "No tienes permiso para realizar esta acción."

// RequirePermission lets the request through only when the actor's role grants perm.
func RequirePermission(perm pkgAuth.Permission, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSignIn))
				return
			}
			if !pkgAuth.Allows(role, perm) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, msgForbidden).
					WithDetails(map[string]any{"permission": string(perm)}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCustomer rejects tokens that carry no customer profile.
func RequireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CustomerIDFromContext(r.Context()); !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, msgForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
