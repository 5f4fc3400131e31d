package loanrules

import (
	"context"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the current loan rule and its history.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to loan rule operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Current loads the singleton rule row.
func (r *Repository) Current(ctx context.Context, tx *gorm.DB) (*models.LoanRule, error) {
	var rule models.LoanRule
	if err := r.Conn(ctx, tx).First(&rule, "id = ?", models.CurrentLoanRuleID).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// Save upserts the singleton rule and appends the version to the history.
func (r *Repository) Save(ctx context.Context, tx *gorm.DB, rule *models.LoanRule) error {
	rule.ID = models.CurrentLoanRuleID
	conn := r.Conn(ctx, tx)
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"term_days", "max_active_loans", "daily_fee", "description", "updated_by", "updated_at"}),
	}).Create(rule).Error; err != nil {
		return err
	}
	return conn.Create(&models.LoanRuleHistory{
		TermDays:       rule.TermDays,
		MaxActiveLoans: rule.MaxActiveLoans,
		DailyFee:       rule.DailyFee,
		Description:    rule.Description,
		ChangedBy:      rule.UpdatedBy,
		ChangedAt:      rule.UpdatedAt,
	}).Error
}

// History lists every saved version, newest first.
func (r *Repository) History(ctx context.Context) ([]models.LoanRuleHistory, error) {
	var rows []models.LoanRuleHistory
	err := r.DB(ctx).Order("changed_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}
