// Package dashboard computes the counters shown on the staff panel.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/calendar"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
)

type bookCounter interface {
	Count(ctx context.Context) (int64, error)
}

type loanCounter interface {
	CountActiveAll(ctx context.Context) (int64, error)
	CountOverdueAll(ctx context.Context, today time.Time) (int64, error)
}

type staffCounter interface {
	CountActiveStaff(ctx context.Context) (int64, error)
}

// Panel holds the counters for one role. Fields that do not apply to the
// role are omitted from the payload.
type Panel struct {
	Role         enums.Role `json:"role"`
	TotalBooks   int64      `json:"total_books"`
	ActiveStaff  *int64     `json:"active_staff,omitempty"`
	ActiveLoans  *int64     `json:"active_loans,omitempty"`
	OverdueLoans *int64     `json:"overdue_loans,omitempty"`
}

// Service returns the panel of the calling role.
type Service interface {
	Panel(ctx context.Context, role enums.Role) (*Panel, error)
}

type service struct {
	books bookCounter
	loans loanCounter
	staff staffCounter
	clock calendar.Clock
}

// NewService wires the panel counters.
func NewService(books bookCounter, loans loanCounter, staff staffCounter, clock calendar.Clock) (Service, error) {
	if books == nil || loans == nil || staff == nil {
		return nil, fmt.Errorf("dashboard counters required")
	}
	return &service{books: books, loans: loans, staff: staff, clock: clock}, nil
}

func (s *service) Panel(ctx context.Context, role enums.Role) (*Panel, error) {
	books, err := s.books.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "contar libros")
	}
	panel := &Panel{Role: role, TotalBooks: books}

	switch role {
	case enums.RoleAdmin:
		staff, err := s.staff.CountActiveStaff(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "contar personal")
		}
		panel.ActiveStaff = &staff
	case enums.RoleLibrarian:
		active, err := s.loans.CountActiveAll(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "contar préstamos")
		}
		overdue, err := s.loans.CountOverdueAll(ctx, s.clock.Today())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "contar préstamos en mora")
		}
		panel.ActiveLoans = &active
		panel.OverdueLoans = &overdue
	case enums.RoleCustomer:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "El panel es exclusivo del personal.")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Rol desconocido.")
	}
	return panel, nil
}
