package models

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Loan lends one Copy to one Customer. Dates are calendar days.
type Loan struct {
	ID           uint                `gorm:"column:id;primaryKey"`
	CustomerID   uint                `gorm:"column:customer_id;not null;index"`
	Customer     Customer            `gorm:"foreignKey:CustomerID"`
	CopyID       uint                `gorm:"column:copy_id;not null;index"`
	Copy         Copy                `gorm:"foreignKey:CopyID"`
	StartDate    time.Time           `gorm:"column:start_date;type:date;not null"`
	DueDate      time.Time           `gorm:"column:due_date;type:date;not null;index"`
	ReturnedAt   *time.Time          `gorm:"column:returned_at;type:date"`
	Status       enums.LoanStatus    `gorm:"column:status;type:varchar(16);not null;default:activo;index"`
	LateDays     int                 `gorm:"column:late_days;not null;default:0"`
	EstimatedFee decimal.NullDecimal `gorm:"column:estimated_fee;type:numeric(10,2)"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsActive reports whether the loan is still out.
func (l Loan) IsActive() bool {
	return l.Status == enums.LoanStatusActive && l.ReturnedAt == nil
}

// IsOverdue reports whether an active loan is past due on the given day.
func (l Loan) IsOverdue(today time.Time) bool {
	return l.IsActive() && l.DueDate.Before(today)
}
