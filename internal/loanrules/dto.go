package loanrules

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// UpdateInput carries the raw form values; each is validated by the service.
type UpdateInput struct {
	TermDays       string `json:"term_days"`
	MaxActiveLoans string `json:"max_active_loans"`
	DailyFee       string `json:"daily_fee"`
	Description    string `json:"description"`
}

// RuleDTO is the API view of a rule version.
type RuleDTO struct {
	TermDays       int             `json:"term_days"`
	MaxActiveLoans int             `json:"max_active_loans"`
	DailyFee       decimal.Decimal `json:"daily_fee"`
	Description    string          `json:"description"`
	UpdatedBy      *uint           `json:"updated_by,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FromModel renders the current rule.
func FromModel(m *models.LoanRule) RuleDTO {
	return RuleDTO{
		TermDays:       m.TermDays,
		MaxActiveLoans: m.MaxActiveLoans,
		DailyFee:       m.DailyFee,
		Description:    m.Description,
		UpdatedBy:      m.UpdatedBy,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromHistory renders one history row.
func FromHistory(m models.LoanRuleHistory) RuleDTO {
	return RuleDTO{
		TermDays:       m.TermDays,
		MaxActiveLoans: m.MaxActiveLoans,
		DailyFee:       m.DailyFee,
		Description:    m.Description,
		UpdatedBy:      m.ChangedBy,
		UpdatedAt:      m.ChangedAt,
	}
}
