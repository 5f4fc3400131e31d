package controllers

import (
	"context"
	"net/http"

	"github.com/biblionet/biblionet-backend/api/middleware"
	"github.com/biblionet/biblionet-backend/api/responses"
	"github.com/biblionet/biblionet-backend/api/validators"
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

type customerBlocker interface {
	BlockManual(ctx context.Context, actorID, customerID uint, reason string) (*models.Customer, error)
	Unblock(ctx context.Context, actorID, customerID uint) (*models.Customer, error)
}

type blockRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

type blockResponse struct {
	Message  string                `json:"message"`
	Customer customers.CustomerDTO `json:"customer"`
}

func CustomersList(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "customer service")
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), validators.QueryString(r, "q", maxQueryLen), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CustomersGet(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "customer service")
			return
		}
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// CustomerBlock places a manual block. GET carries no reason; POST may send one.
func CustomerBlock(engine customerBlocker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			unavailable(w, r, logg, "block engine")
			return
		}
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body blockRequest
		if r.Method == http.MethodPost {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		customer, err := engine.BlockManual(r.Context(), middleware.UserIDFromContext(r.Context()), id, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blockResponse{
			Message:  "Cliente bloqueado correctamente.",
			Customer: customers.FromModel(customer),
		})
	}
}

func CustomerUnblock(engine customerBlocker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			unavailable(w, r, logg, "block engine")
			return
		}
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := engine.Unblock(r.Context(), middleware.UserIDFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blockResponse{
			Message:  "Cliente desbloqueado correctamente.",
			Customer: customers.FromModel(customer),
		})
	}
}
