package controllers

import (
	"net/http"

	"github.com/biblionet/biblionet-backend/api/middleware"
	"github.com/biblionet/biblionet-backend/api/responses"
	"github.com/biblionet/biblionet-backend/api/validators"
	"github.com/biblionet/biblionet-backend/internal/loanrules"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

type ruleResponse struct {
	Message string            `json:"message,omitempty"`
	Rule    loanrules.RuleDTO `json:"rule"`
}

func LoanRuleCurrent(svc loanrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "loan rule service")
			return
		}
		rule, err := svc.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ruleResponse{Rule: loanrules.FromModel(rule)})
	}
}

func LoanRuleUpdate(svc loanrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "loan rule service")
			return
		}
		var body loanrules.UpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.Update(r.Context(), middleware.UserIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ruleResponse{
			Message: "Reglas de préstamo actualizadas.",
			Rule:    loanrules.FromModel(rule),
		})
	}
}

func LoanRuleHistory(svc loanrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "loan rule service")
			return
		}
		items, err := svc.History(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
