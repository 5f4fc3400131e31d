package loans

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/biblionet/biblionet-backend/internal/audit"
	"github.com/biblionet/biblionet-backend/internal/catalog"
	"github.com/biblionet/biblionet-backend/internal/copies"
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/internal/loanrules"
	"github.com/biblionet/biblionet-backend/internal/mora"
	"github.com/biblionet/biblionet-backend/internal/testdb"
	"github.com/biblionet/biblionet-backend/pkg/calendar"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var today = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

type desk struct {
	svc   Service
	conn  *gorm.DB
	staff *models.User
}

func newDesk(t *testing.T) desk {
	t.Helper()
	client, conn := testdb.Client(t, "loans")
	clock := calendar.Clock{Now: testdb.FixedClock(today.Add(14 * time.Hour)), Location: time.UTC}
	auditRepo := audit.NewRepository(conn)

	rules, err := loanrules.NewService(loanrules.ServiceParams{
		Repo:   loanrules.NewRepository(conn),
		Audit:  auditRepo,
		Tx:     client,
		Logger: logger.Nop(),
	})
	require.NoError(t, err)
	engine, err := mora.NewEngine(mora.EngineParams{
		Repo:   mora.NewRepository(conn),
		Audit:  auditRepo,
		Tx:     client,
		Logger: logger.Nop(),
		Clock:  clock,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Rules:     rules,
		Customers: customers.NewRepository(conn),
		Books:     catalog.NewRepository(conn),
		Mora:      engine,
		Copies:    copies.NewGenerator(),
		Audit:     auditRepo,
		Tx:        client,
		Logger:    logger.Nop(),
		Clock:     clock,
		PageSize:  10,
	})
	require.NoError(t, err)
	return desk{svc: svc, conn: conn, staff: testdb.Staff(t, conn, "lib@biblionet.hn", enums.RoleLibrarian)}
}

func lastAction(t *testing.T, conn *gorm.DB) string {
	t.Helper()
	var entry models.AuditLogEntry
	require.NoError(t, conn.Order("id DESC").First(&entry).Error)
	return entry.Action
}

func stockOf(t *testing.T, conn *gorm.DB, bookID uint) int {
	t.Helper()
	var book models.Book
	require.NoError(t, conn.First(&book, bookID).Error)
	return book.Stock
}

func TestIssueWithoutRuleWritesNothing(t *testing.T) {
	d := newDesk(t)
	testdb.Customer(t, d.conn, "0801")
	book := testdb.Book(t, d.conn, "978-1", 2)

	_, err := d.svc.Issue(context.Background(), d.staff.ID, IssueInput{DNI: "0801", ISBN: "978-1"})
	require.ErrorIs(t, err, loanrules.ErrNoRule)

	var loans int64
	require.NoError(t, d.conn.Model(&models.Loan{}).Count(&loans).Error)
	require.Zero(t, loans)
	require.Equal(t, 2, stockOf(t, d.conn, book.ID))
}

func TestIssuePreconditionsInOrder(t *testing.T) {
	d := newDesk(t)
	testdb.LoanRule(t, d.conn, 7, 1, "5")
	testdb.Customer(t, d.conn, "0801")
	busy := testdb.Customer(t, d.conn, "0802")
	late := testdb.Customer(t, d.conn, "0803")
	testdb.Book(t, d.conn, "978-1", 3)
	empty := testdb.Book(t, d.conn, "978-0", 0)
	other := testdb.Book(t, d.conn, "978-2", 3)
	testdb.Loan(t, d.conn, busy.ID, other, today, today.AddDate(0, 0, 7))
	testdb.Loan(t, d.conn, late.ID, other, today.AddDate(0, 0, -9), today.AddDate(0, 0, -2))

	cases := []struct {
		name  string
		input IssueInput
		code  pkgerrors.Code
		msg   string
	}{
		{"missing fields", IssueInput{DNI: "0801"}, pkgerrors.CodeValidation, "Completa todos los campos."},
		{"bad date", IssueInput{DNI: "0801", ISBN: "978-1", StartDate: "10/03/2025"}, pkgerrors.CodeValidation, "La fecha de inicio no es válida."},
		{"past date", IssueInput{DNI: "0801", ISBN: "978-1", StartDate: "2025-03-09"}, pkgerrors.CodeValidation, "La fecha de inicio no puede ser anterior a hoy."},
		{"unknown customer", IssueInput{DNI: "9999", ISBN: "978-1"}, pkgerrors.CodeNotFound, "No se encontró un cliente activo con ese DNI."},
		{"blocked customer", IssueInput{DNI: "0803", ISBN: "978-1"}, pkgerrors.CodeStateConflict, "El cliente está bloqueado: Bloqueo automático por préstamos en mora."},
		{"limit reached", IssueInput{DNI: "0802", ISBN: "978-1"}, pkgerrors.CodeStateConflict, "El cliente ya alcanzó el límite de 1 préstamos activos."},
		{"unknown book", IssueInput{DNI: "0801", ISBN: "000"}, pkgerrors.CodeNotFound, "No se encontró un libro con ese ISBN."},
		{"no stock", IssueInput{DNI: "0801", ISBN: empty.ISBN}, pkgerrors.CodeStateConflict, "No hay stock disponible para este libro."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.svc.Issue(context.Background(), d.staff.ID, tc.input)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed, "expected typed error, got %v", err)
			require.Equal(t, tc.code, typed.Code())
			require.Equal(t, tc.msg, typed.Message())
		})
	}

	var blocked models.Customer
	require.NoError(t, d.conn.First(&blocked, late.ID).Error)
	require.True(t, blocked.Blocked, "block from the rejected issuance must persist")
}

func TestIssueCreatesCopyLoanAndAudit(t *testing.T) {
	d := newDesk(t)
	testdb.LoanRule(t, d.conn, 7, 3, "5")
	customer := testdb.Customer(t, d.conn, "0801")
	book := testdb.Book(t, d.conn, "978-1", 2)

	res, err := d.svc.Issue(context.Background(), d.staff.ID, IssueInput{DNI: "0801", ISBN: "978-1", StartDate: "2025-03-12"})
	require.NoError(t, err)
	require.Equal(t, "Préstamo registrado correctamente.", res.Message)
	require.Equal(t, "2025-03-12", res.Loan.StartDate)
	require.Equal(t, "2025-03-19", res.Loan.DueDate)
	require.True(t, strings.HasPrefix(res.Copy.Code, fmt.Sprintf("EJ-%d-", book.ID)))
	require.Equal(t, 1, res.Book.Stock)
	require.Equal(t, customer.ID, res.Customer.ID)
	require.Equal(t, 1, stockOf(t, d.conn, book.ID))

	require.Equal(t,
		fmt.Sprintf("REGISTRO PRÉSTAMO: cliente=0801, ejemplar=%s, id_prestamo=%d", res.Copy.Code, res.Loan.ID),
		lastAction(t, d.conn))
}

func TestReturnLateBlocksCustomerAndRestoresStock(t *testing.T) {
	d := newDesk(t)
	testdb.LoanRule(t, d.conn, 7, 3, "2.50")
	customer := testdb.Customer(t, d.conn, "0801")
	book := testdb.Book(t, d.conn, "978-1", 0)
	loan := testdb.Loan(t, d.conn, customer.ID, book, today.AddDate(0, 0, -10), today.AddDate(0, 0, -3))

	res, err := d.svc.Return(context.Background(), d.staff.ID, loan.ID)
	require.NoError(t, err)
	require.True(t, res.Warning)
	require.Equal(t, 3, res.LateDays)
	require.Equal(t, "7.50", res.EstimatedFee.StringFixed(2))
	require.True(t, res.CustomerBlock)
	require.Equal(t, "Bloqueo automático por mora: devolución con 3 día(s) de atraso, mora estimada L 7.50.", res.BlockReason)
	require.Equal(t, enums.LoanStatusReturned, res.Loan.Status)
	require.Equal(t, 1, stockOf(t, d.conn, book.ID))
	require.Equal(t, fmt.Sprintf("DEVOLVIÓ PRÉSTAMO CON MORA id=%d dias=3", loan.ID), lastAction(t, d.conn))

	_, err = d.svc.Return(context.Background(), d.staff.ID, loan.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = d.svc.Return(context.Background(), d.staff.ID, 999)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReturnOnTimeLiftsAutomaticBlock(t *testing.T) {
	d := newDesk(t)
	customer := testdb.Customer(t, d.conn, "0801")
	book := testdb.Book(t, d.conn, "978-1", 0)
	loan := testdb.Loan(t, d.conn, customer.ID, book, today.AddDate(0, 0, -3), today)

	kind := enums.BlockKindAutomatic
	reason := "Bloqueo automático por préstamos en mora."
	require.NoError(t, d.conn.Model(&models.Customer{}).Where("id = ?", customer.ID).
		Updates(map[string]any{"blocked": true, "block_kind": kind, "block_reason": reason}).Error)

	res, err := d.svc.Return(context.Background(), d.staff.ID, loan.ID)
	require.NoError(t, err)
	require.False(t, res.Warning)
	require.Nil(t, res.EstimatedFee)
	require.False(t, res.CustomerBlock)
	require.Equal(t, "El préstamo se marcó como devuelto.", res.Message)
	require.Equal(t, fmt.Sprintf("DEVOLVIÓ PRÉSTAMO id=%d", loan.ID), lastAction(t, d.conn))
}

func TestReturnLateWithoutRuleOmitsFee(t *testing.T) {
	d := newDesk(t)
	customer := testdb.Customer(t, d.conn, "0801")
	book := testdb.Book(t, d.conn, "978-1", 0)
	loan := testdb.Loan(t, d.conn, customer.ID, book, today.AddDate(0, 0, -10), today.AddDate(0, 0, -1))

	res, err := d.svc.Return(context.Background(), d.staff.ID, loan.ID)
	require.NoError(t, err)
	require.Equal(t, 1, res.LateDays)
	require.Nil(t, res.EstimatedFee)
	require.Equal(t, "Bloqueo automático por mora: devolución con 1 día(s) de atraso.", res.BlockReason)
}

func TestRenewValidatesAndMovesDueDate(t *testing.T) {
	d := newDesk(t)
	ctx := context.Background()
	customer := testdb.Customer(t, d.conn, "0801")
	book := testdb.Book(t, d.conn, "978-1", 1)
	loan := testdb.Loan(t, d.conn, customer.ID, book, today, today.AddDate(0, 0, 7))

	_, err := d.svc.Renew(ctx, d.staff.ID, loan.ID, RenewInput{})
	require.Equal(t, "Debes seleccionar una nueva fecha de devolución.", pkgerrors.As(err).Message())
	_, err = d.svc.Renew(ctx, d.staff.ID, loan.ID, RenewInput{NewDueDate: "mañana"})
	require.Equal(t, "La nueva fecha de devolución no es válida.", pkgerrors.As(err).Message())
	_, err = d.svc.Renew(ctx, d.staff.ID, loan.ID, RenewInput{NewDueDate: "2025-03-17"})
	require.Equal(t, "La nueva fecha de devolución debe ser mayor a la fecha actual de devolución.", pkgerrors.As(err).Message())

	res, err := d.svc.Renew(ctx, d.staff.ID, loan.ID, RenewInput{NewDueDate: "2025-03-24"})
	require.NoError(t, err)
	require.Equal(t, "2025-03-24", res.Loan.DueDate)
	require.Equal(t, fmt.Sprintf("RENOVÓ PRÉSTAMO id=%d nueva_fecha=2025-03-24", loan.ID), lastAction(t, d.conn))
}

func TestListActiveSearchesAndFlagsOverdue(t *testing.T) {
	d := newDesk(t)
	ctx := context.Background()
	maria := testdb.Customer(t, d.conn, "0801")
	other := testdb.Customer(t, d.conn, "0802")
	require.NoError(t, d.conn.Model(&models.User{}).Where("id = ?", other.UserID).Update("first_name", "carlos").Error)
	book := testdb.Book(t, d.conn, "978-1", 5)
	testdb.Loan(t, d.conn, maria.ID, book, today.AddDate(0, 0, -8), today.AddDate(0, 0, -1))
	testdb.Loan(t, d.conn, other.ID, book, today, today.AddDate(0, 0, 7))

	res, err := d.svc.ListActive(ctx, "", 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Page.Total)
	require.True(t, res.Items[0].Overdue)
	require.False(t, res.Items[1].Overdue)

	res, err = d.svc.ListActive(ctx, "CARLOS", 1)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, "0802", res.Items[0].CustomerDNI)

	own, err := d.svc.ListOwn(ctx, maria.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, book.Title, own[0].BookTitle)
}
