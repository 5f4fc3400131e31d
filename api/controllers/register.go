package controllers

import (
	"net/http"

	"github.com/biblionet/biblionet-backend/api/responses"
	"github.com/biblionet/biblionet-backend/api/validators"
	"github.com/biblionet/biblionet-backend/internal/auth"
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

type registerResponse struct {
	Message      string                `json:"message"`
	Customer     customers.CustomerDTO `json:"customer"`
	AccessToken  string                `json:"access_token,omitempty"`
	RefreshToken string                `json:"refresh_token,omitempty"`
}

// AuthRegister creates a customer account and, when possible, signs the new
// customer in within the same response. A failed sign-in still returns 201
// without tokens since the account exists.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || svc == nil {
			unavailable(w, r, logg, "auth service")
			return
		}
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := reg.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := registerResponse{Message: created.Message, Customer: created.Customer}
		login, err := svc.Login(r.Context(), auth.LoginRequest{Email: body.Email, Password: body.Password})
		switch {
		case err == nil:
			resp.AccessToken, resp.RefreshToken = login.AccessToken, login.RefreshToken
			exposeToken(w, login.AccessToken)
		case logg != nil:
			logg.Warn(logg.WithField(r.Context(), "customer_id", created.Customer.ID), "register.auto_login_failed")
		}
		responses.WriteCreated(w, resp)
	}
}
