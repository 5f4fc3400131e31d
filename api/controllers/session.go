package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/biblionet/biblionet-backend/api/middleware"
	"github.com/biblionet/biblionet-backend/api/responses"
	"github.com/biblionet/biblionet-backend/api/validators"
	pkgAuth "github.com/biblionet/biblionet-backend/pkg/auth"
	"github.com/biblionet/biblionet-backend/pkg/auth/session"
	"github.com/biblionet/biblionet-backend/pkg/config"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

const (
	msgSignIn         = "Inicia sesión para continuar."
	msgSessionExpired = "La sesión expiró. Inicia sesión de nuevo."
	msgSignedOut      = "Sesión cerrada."
)

type sessionRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// presentedClaims reads the bearer token even when it has expired: refresh
// and logout are exactly the calls made with a stale access token.
func presentedClaims(r *http.Request, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, error) {
	raw := middleware.BearerToken(r)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSignIn)
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msgSignIn)
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSignIn)
	}
	return claims, nil
}

// AuthLogout ends the session behind the presented access token.
func AuthLogout(sessions sessionRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			unavailable(w, r, logg, "session manager")
			return
		}
		claims, err := presentedClaims(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sessions.Revoke(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
			return
		}
		responses.WriteSuccess(w, messageResponse{Message: msgSignedOut})
	}
}

// AuthRefresh trades a refresh token for a new pair. The new access token
// carries the identity of the old one under a fresh jti.
func AuthRefresh(sessions sessionRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			unavailable(w, r, logg, "session manager")
			return
		}
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		claims, err := presentedClaims(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accessID, refresh, err := sessions.Rotate(r.Context(), claims.ID, body.RefreshToken)
		switch {
		case errors.Is(err, session.ErrInvalidRefreshToken):
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSessionExpired))
			return
		case err != nil:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session"))
			return
		}

		access, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
			UserID:     claims.UserID,
			Role:       claims.Role,
			CustomerID: claims.CustomerID,
			JTI:        accessID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token"))
			return
		}

		exposeToken(w, access)
		responses.WriteSuccess(w, tokenPair{AccessToken: access, RefreshToken: refresh})
	}
}
