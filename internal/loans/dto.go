package loans

import (
	"time"

	"github.com/biblionet/biblionet-backend/internal/catalog"
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/pkg/calendar"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// IssueInput is the loan desk form. StartDate defaults to today.
type IssueInput struct {
	DNI       string `json:"dni"`
	ISBN      string `json:"isbn"`
	StartDate string `json:"start_date"`
}

// RenewInput carries the new due date as YYYY-MM-DD.
type RenewInput struct {
	NewDueDate string `json:"new_due_date"`
}

// CopyDTO is the physical copy handed over the desk.
type CopyDTO struct {
	ID        uint                `json:"id"`
	Code      string              `json:"code"`
	Location  string              `json:"location"`
	Condition enums.CopyCondition `json:"condition"`
}

// LoanDTO is the API view of a loan.
type LoanDTO struct {
	ID           uint             `json:"id"`
	CustomerID   uint             `json:"customer_id"`
	CustomerName string           `json:"customer_name,omitempty"`
	CustomerDNI  string           `json:"customer_dni,omitempty"`
	Copy         CopyDTO          `json:"copy"`
	BookID       uint             `json:"book_id"`
	BookTitle    string           `json:"book_title,omitempty"`
	StartDate    string           `json:"start_date"`
	DueDate      string           `json:"due_date"`
	ReturnedAt   *string          `json:"returned_at,omitempty"`
	Status       enums.LoanStatus `json:"status"`
	Overdue      bool             `json:"overdue"`
	LateDays     int              `json:"late_days"`
	EstimatedFee *decimal.Decimal `json:"estimated_fee,omitempty"`
}

// FromModel renders a loan as of today.
func FromModel(l *models.Loan, today time.Time) LoanDTO {
	dto := LoanDTO{
		ID:         l.ID,
		CustomerID: l.CustomerID,
		Copy: CopyDTO{
			ID:        l.Copy.ID,
			Code:      l.Copy.Code,
			Location:  l.Copy.Location,
			Condition: l.Copy.Condition,
		},
		BookID:    l.Copy.BookID,
		BookTitle: l.Copy.Book.Title,
		StartDate: calendar.Format(l.StartDate),
		DueDate:   calendar.Format(l.DueDate),
		Status:    l.Status,
		Overdue:   l.IsOverdue(today),
		LateDays:  l.LateDays,
	}
	if l.Customer.ID != 0 {
		dto.CustomerName = l.Customer.User.FullName()
		dto.CustomerDNI = l.Customer.DNI
	}
	if l.ReturnedAt != nil {
		returned := calendar.Format(*l.ReturnedAt)
		dto.ReturnedAt = &returned
	}
	if l.EstimatedFee.Valid {
		fee := l.EstimatedFee.Decimal
		dto.EstimatedFee = &fee
	}
	return dto
}

// IssueResult is what the desk prints after issuing a loan.
type IssueResult struct {
	Message  string                `json:"message"`
	Loan     LoanDTO               `json:"loan"`
	Copy     CopyDTO               `json:"copy"`
	Book     catalog.BookDTO       `json:"book"`
	Customer customers.CustomerDTO `json:"customer"`
}

// ReturnResult reports the outcome of a return, including any block it caused.
type ReturnResult struct {
	Message       string           `json:"message"`
	Loan          LoanDTO          `json:"loan"`
	LateDays      int              `json:"late_days"`
	EstimatedFee  *decimal.Decimal `json:"estimated_fee,omitempty"`
	Warning       bool             `json:"warning"`
	CustomerBlock bool             `json:"customer_blocked"`
	BlockReason   string           `json:"block_reason,omitempty"`
}

// RenewResult reports a renewed loan.
type RenewResult struct {
	Message string  `json:"message"`
	Loan    LoanDTO `json:"loan"`
}
