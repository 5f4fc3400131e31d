package loans

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biblionet/biblionet-backend/internal/catalog"
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/internal/loanrules"
	"github.com/biblionet/biblionet-backend/internal/mora"
	"github.com/biblionet/biblionet-backend/internal/stock"
	"github.com/biblionet/biblionet-backend/pkg/calendar"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
	"github.com/biblionet/biblionet-backend/pkg/money"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"github.com/biblionet/biblionet-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	msgIssued   = "Préstamo registrado correctamente."
	msgReturned = "El préstamo se marcó como devuelto."
	msgRenewed  = "El préstamo se renovó correctamente."
)

var (
	errLoanNotFound  = pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró el préstamo.")
	errLoanNotActive = pkgerrors.New(pkgerrors.CodeStateConflict, "El préstamo ya no está activo.")
)

type loanRepository interface {
	Create(ctx context.Context, tx *gorm.DB, loan *models.Loan) error
	Save(ctx context.Context, tx *gorm.DB, loan *models.Loan) error
	CountActive(ctx context.Context, tx *gorm.DB, customerID uint) (int64, error)
	FindForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Loan, error)
	ListActive(ctx context.Context, query string, page pagination.Page) ([]models.Loan, int64, error)
	ListByCustomer(ctx context.Context, customerID uint) ([]models.Loan, error)
}

type ruleResolver interface {
	CurrentTx(ctx context.Context, tx *gorm.DB) (*models.LoanRule, error)
}

type customerFinder interface {
	FindActiveByDNI(ctx context.Context, tx *gorm.DB, dni string) (*models.Customer, error)
}

type bookFinder interface {
	FindByISBN(ctx context.Context, tx *gorm.DB, isbn string) (*models.Book, error)
}

type blockEngine interface {
	Refresh(ctx context.Context, customerID uint) (mora.Status, error)
	Evaluate(ctx context.Context, tx *gorm.DB, customerID uint, late *mora.LateReturn) (mora.Status, error)
}

type copyMaker interface {
	Create(ctx context.Context, tx *gorm.DB, book *models.Book) (*models.Copy, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, actorID *uint, action string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the loan desk: issue, return, renew and listings.
type Service interface {
	Issue(ctx context.Context, actorID uint, input IssueInput) (*IssueResult, error)
	Return(ctx context.Context, actorID uint, loanID uint) (*ReturnResult, error)
	Renew(ctx context.Context, actorID uint, loanID uint, input RenewInput) (*RenewResult, error)
	ListActive(ctx context.Context, query string, page int) (*types.PageEnvelope[LoanDTO], error)
	ListOwn(ctx context.Context, customerID uint) ([]LoanDTO, error)
}

// ServiceParams groups loan desk dependencies.
type ServiceParams struct {
	Repo      loanRepository
	Rules     ruleResolver
	Customers customerFinder
	Books     bookFinder
	Mora      blockEngine
	Copies    copyMaker
	Audit     auditRecorder
	Tx        txRunner
	Logger    *logger.Logger
	Metrics   *metrics.LibraryMetrics
	Clock     calendar.Clock
	PageSize  int
}

type service struct {
	repo      loanRepository
	rules     ruleResolver
	customers customerFinder
	books     bookFinder
	mora      blockEngine
	copies    copyMaker
	audit     auditRecorder
	tx        txRunner
	logg      *logger.Logger
	metrics   *metrics.LibraryMetrics
	clock     calendar.Clock
	pageSize  int
}

// NewService wires the loan desk.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("loan repository required")
	case params.Rules == nil:
		return nil, fmt.Errorf("loan rule resolver required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customer finder required")
	case params.Books == nil:
		return nil, fmt.Errorf("book finder required")
	case params.Mora == nil:
		return nil, fmt.Errorf("block engine required")
	case params.Copies == nil:
		return nil, fmt.Errorf("copy generator required")
	case params.Audit == nil:
		return nil, fmt.Errorf("audit recorder required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &service{
		repo:      params.Repo,
		rules:     params.Rules,
		customers: params.Customers,
		books:     params.Books,
		mora:      params.Mora,
		copies:    params.Copies,
		audit:     params.Audit,
		tx:        params.Tx,
		logg:      params.Logger,
		metrics:   params.Metrics,
		clock:     params.Clock,
		pageSize:  pageSize,
	}, nil
}

// Issue checks the preconditions in desk order, then in one transaction
// takes a unit of stock, synthesizes the copy and writes the loan.
func (s *service) Issue(ctx context.Context, actorID uint, input IssueInput) (*IssueResult, error) {
	rule, err := s.rules.CurrentTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	dni := strings.TrimSpace(input.DNI)
	isbn := strings.TrimSpace(input.ISBN)
	if dni == "" || isbn == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Completa todos los campos.")
	}

	today := s.clock.Today()
	start := today
	if raw := strings.TrimSpace(input.StartDate); raw != "" {
		parsed, err := calendar.Parse(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "La fecha de inicio no es válida.")
		}
		start = parsed
	}
	if start.Before(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "La fecha de inicio no puede ser anterior a hoy.")
	}

	customer, err := s.customers.FindActiveByDNI(ctx, nil, dni)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró un cliente activo con ese DNI.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "buscar cliente")
	}

	status, err := s.mora.Refresh(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if err := status.Err(); err != nil {
		return nil, err
	}
	customer.Blocked = status.Blocked

	if err := s.checkLimit(ctx, nil, customer.ID, rule); err != nil {
		return nil, err
	}

	book, err := s.books.FindByISBN(ctx, nil, isbn)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró un libro con ese ISBN.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "buscar libro")
	}
	if book.Stock <= 0 {
		return nil, stock.ErrInsufficient
	}

	loan := &models.Loan{
		CustomerID: customer.ID,
		StartDate:  start,
		DueDate:    calendar.AddDays(start, rule.TermDays),
		Status:     enums.LoanStatusActive,
	}
	var cp *models.Copy
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.checkLimit(ctx, tx, customer.ID, rule); err != nil {
			return err
		}
		if err := stock.Decrement(ctx, tx, book.ID, 1); err != nil {
			return err
		}
		var err error
		cp, err = s.copies.Create(ctx, tx, book)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "crear ejemplar")
		}
		loan.CopyID = cp.ID
		if err := s.repo.Create(ctx, tx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar préstamo")
		}
		action := fmt.Sprintf("REGISTRO PRÉSTAMO: cliente=%s, ejemplar=%s, id_prestamo=%d", customer.DNI, cp.Code, loan.ID)
		return s.record(ctx, tx, actorID, action)
	})
	if err != nil {
		return nil, err
	}

	book.Stock--
	loan.Copy = *cp
	loan.Customer = *customer
	s.metrics.LoanIssued()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"loan_id":     loan.ID,
		"customer_id": customer.ID,
		"copy_code":   cp.Code,
	}), "loan issued")

	loanDTO := FromModel(loan, today)
	return &IssueResult{
		Message:  msgIssued,
		Loan:     loanDTO,
		Copy:     loanDTO.Copy,
		Book:     catalog.FromModel(book),
		Customer: customers.FromModel(customer),
	}, nil
}

// Return closes an active loan, puts the unit back in stock and hands the
// outcome to the block engine, all in one transaction.
func (s *service) Return(ctx context.Context, actorID uint, loanID uint) (*ReturnResult, error) {
	today := s.clock.Today()
	var (
		loan   *models.Loan
		fee    *decimal.Decimal
		status mora.Status
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		loan, err = s.loadActive(ctx, tx, loanID)
		if err != nil {
			return err
		}

		lateDays := calendar.DaysLate(loan.DueDate, today)
		returned := today
		loan.ReturnedAt = &returned
		loan.Status = enums.LoanStatusReturned
		loan.LateDays = lateDays

		var late *mora.LateReturn
		if lateDays > 0 {
			rule, err := s.rules.CurrentTx(ctx, tx)
			switch {
			case err == nil:
				amount := money.Fee(rule.DailyFee, lateDays)
				fee = &amount
				loan.EstimatedFee = decimal.NewNullDecimal(amount)
			case errors.Is(err, loanrules.ErrNoRule):
			default:
				return err
			}
			late = &mora.LateReturn{LateDays: lateDays, EstimatedFee: fee}
		}

		if err := s.repo.Save(ctx, tx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "actualizar préstamo")
		}
		if err := stock.Increment(ctx, tx, loan.Copy.BookID, 1); err != nil {
			return err
		}
		status, err = s.mora.Evaluate(ctx, tx, loan.CustomerID, late)
		if err != nil {
			return err
		}

		action := fmt.Sprintf("DEVOLVIÓ PRÉSTAMO id=%d", loan.ID)
		if lateDays > 0 {
			action = fmt.Sprintf("DEVOLVIÓ PRÉSTAMO CON MORA id=%d dias=%d", loan.ID, lateDays)
		}
		return s.record(ctx, tx, actorID, action)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.LoanReturned(loan.LateDays > 0)
	result := &ReturnResult{
		Message:       msgReturned,
		Loan:          FromModel(loan, today),
		LateDays:      loan.LateDays,
		EstimatedFee:  fee,
		CustomerBlock: status.Blocked,
		BlockReason:   status.Reason,
	}
	if loan.LateDays > 0 {
		result.Warning = true
		result.Message = lateMessage(loan.LateDays, fee)
	}
	return result, nil
}

// Renew pushes the due date of an active loan forward.
func (s *service) Renew(ctx context.Context, actorID uint, loanID uint, input RenewInput) (*RenewResult, error) {
	raw := strings.TrimSpace(input.NewDueDate)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Debes seleccionar una nueva fecha de devolución.")
	}
	newDue, err := calendar.Parse(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "La nueva fecha de devolución no es válida.")
	}

	var loan *models.Loan
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		loan, err = s.loadActive(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if !newDue.After(calendar.Day(loan.DueDate)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "La nueva fecha de devolución debe ser mayor a la fecha actual de devolución.")
		}
		loan.DueDate = newDue
		if err := s.repo.Save(ctx, tx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "actualizar préstamo")
		}
		if _, err := s.mora.Evaluate(ctx, tx, loan.CustomerID, nil); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, fmt.Sprintf("RENOVÓ PRÉSTAMO id=%d nueva_fecha=%s", loan.ID, calendar.Format(newDue)))
	})
	if err != nil {
		return nil, err
	}
	return &RenewResult{Message: msgRenewed, Loan: FromModel(loan, s.clock.Today())}, nil
}

func (s *service) ListActive(ctx context.Context, query string, pageNumber int) (*types.PageEnvelope[LoanDTO], error) {
	page := pagination.NewPage(pageNumber, s.pageSize)
	rows, total, err := s.repo.ListActive(ctx, query, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar préstamos")
	}
	today := s.clock.Today()
	items := make([]LoanDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i], today))
	}
	return &types.PageEnvelope[LoanDTO]{Items: items, Page: page.Clamp(total).Meta(total)}, nil
}

func (s *service) ListOwn(ctx context.Context, customerID uint) ([]LoanDTO, error) {
	rows, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar préstamos")
	}
	today := s.clock.Today()
	items := make([]LoanDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i], today))
	}
	return items, nil
}

func (s *service) checkLimit(ctx context.Context, tx *gorm.DB, customerID uint, rule *models.LoanRule) error {
	active, err := s.repo.CountActive(ctx, tx, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "contar préstamos activos")
	}
	if active >= int64(rule.MaxActiveLoans) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "El cliente ya alcanzó el límite de %d préstamos activos.", rule.MaxActiveLoans)
	}
	return nil
}

func (s *service) loadActive(ctx context.Context, tx *gorm.DB, loanID uint) (*models.Loan, error) {
	loan, err := s.repo.FindForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errLoanNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar préstamo")
	}
	if !loan.IsActive() {
		return nil, errLoanNotActive
	}
	return loan, nil
}

func (s *service) record(ctx context.Context, tx *gorm.DB, actorID uint, action string) error {
	if err := s.audit.Record(ctx, tx, &actorID, action); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar bitácora")
	}
	return nil
}

func lateMessage(days int, fee *decimal.Decimal) string {
	msg := fmt.Sprintf("El préstamo se devolvió con %d día(s) de atraso", days)
	if fee != nil {
		msg += fmt.Sprintf(" (mora estimada %s)", money.Format(*fee))
	}
	return msg + ". El cliente quedó bloqueado por mora."
}
