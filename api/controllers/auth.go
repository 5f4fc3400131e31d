package controllers

import (
	"net/http"

	"github.com/biblionet/biblionet-backend/api/middleware"
	"github.com/biblionet/biblionet-backend/api/responses"
	"github.com/biblionet/biblionet-backend/api/validators"
	"github.com/biblionet/biblionet-backend/internal/auth"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

// tokenHeader mirrors the access token for clients that read headers only.
const tokenHeader = "X-BN-Token"

func exposeToken(w http.ResponseWriter, access string) {
	if access != "" {
		w.Header().Set(tokenHeader, access)
	}
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, what string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeInternal, "%s unavailable", what))
}

// AuthLogin signs a customer in.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth service")
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exposeToken(w, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// StaffLogin signs a librarian or administrator in under the requested role.
func StaffLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth service")
			return
		}

		var body auth.StaffLoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StaffLogin(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exposeToken(w, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// ChangePassword updates the caller's own password.
func ChangePassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth service")
			return
		}

		var body auth.ChangePasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ChangePassword(r.Context(), middleware.UserIDFromContext(r.Context()), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messageResponse{Message: "Tu contraseña se actualizó correctamente."})
	}
}

// StaffRegister lets an administrator create an employee account.
func StaffRegister(svc auth.StaffRegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "staff service")
			return
		}

		var body auth.StaffRegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), middleware.UserIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

type messageResponse struct {
	Message string `json:"message"`
}
