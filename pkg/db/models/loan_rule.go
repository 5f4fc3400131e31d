package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrentLoanRuleID is the primary key of the singleton current rule row.
const CurrentLoanRuleID uint = 1

// LoanRule is the current lending policy. Exactly one row exists once configured.
type LoanRule struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement:false"`
	TermDays       int             `gorm:"column:term_days;not null;check:term_days > 0"`
	MaxActiveLoans int             `gorm:"column:max_active_loans;not null;check:max_active_loans > 0"`
	DailyFee       decimal.Decimal `gorm:"column:daily_fee;type:numeric(10,2);not null;check:daily_fee >= 0"`
	Description    string          `gorm:"column:description;not null;default:''"`
	UpdatedBy      *uint           `gorm:"column:updated_by"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

// LoanRuleHistory keeps every rule version ever saved.
type LoanRuleHistory struct {
	ID             uint            `gorm:"column:id;primaryKey"`
	TermDays       int             `gorm:"column:term_days;not null"`
	MaxActiveLoans int             `gorm:"column:max_active_loans;not null"`
	DailyFee       decimal.Decimal `gorm:"column:daily_fee;type:numeric(10,2);not null"`
	Description    string          `gorm:"column:description;not null;default:''"`
	ChangedBy      *uint           `gorm:"column:changed_by"`
	ChangedAt      time.Time       `gorm:"column:changed_at;not null"`
}

func (LoanRuleHistory) TableName() string {
	return "loan_rule_history"
}
