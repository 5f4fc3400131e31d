package controllers

import (
	"net/http"

	"github.com/biblionet/biblionet-backend/api/middleware"
	"github.com/biblionet/biblionet-backend/api/responses"
	"github.com/biblionet/biblionet-backend/api/validators"
	"github.com/biblionet/biblionet-backend/internal/audit"
	"github.com/biblionet/biblionet-backend/internal/dashboard"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
)

// DashboardPanel returns the role-specific counters.
func DashboardPanel(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "dashboard service")
			return
		}
		panel, err := svc.Panel(r.Context(), middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, panel)
	}
}

// AuditLog pages the audit trail newest first with an opaque cursor.
func AuditLog(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "audit service")
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: validators.QueryString(r, "cursor", 256),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
