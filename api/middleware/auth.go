package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/biblionet/biblionet-backend/api/responses"
	pkgAuth "github.com/biblionet/biblionet-backend/pkg/auth"
	"github.com/biblionet/biblionet-backend/pkg/auth/session"
	"github.com/biblionet/biblionet-backend/pkg/config"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

const (
	msgSignIn         = "Inicia sesión para continuar."
	msgSessionExpired = "La sesión expiró. Inicia sesión de nuevo."
)

// Auth admits requests carrying a valid access token whose session is still
// open, and puts the principal on the context for handlers and logs.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, cfg, verifier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), claims.UserID, claims.Role, claims.CustomerID)
			ctx = context.WithValue(ctx, ctxSessionID, claims.ID)
			if logg != nil {
				ctx = logg.WithPrincipal(ctx, claims.UserID, claims.Role.String(), claims.CustomerID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	raw := BearerToken(r)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSignIn)
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msgSignIn)
	}
	if claims.ID == "" || claims.UserID == 0 || !claims.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSignIn)
	}
	if verifier == nil {
		return claims, nil
	}

	open, err := verifier.HasSession(r.Context(), claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !open {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSessionExpired)
	}
	return claims, nil
}

// BearerToken returns the Authorization header value without its "Bearer"
// scheme. A bare token is accepted as is.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return raw
}
