package loans

import (
	"context"
	"strings"
	"time"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles loan persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to loan operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a loan row.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, loan *models.Loan) error {
	return r.Conn(ctx, tx).Omit(clause.Associations).Create(loan).Error
}

// Save writes every column of loan, leaving associations untouched.
func (r *Repository) Save(ctx context.Context, tx *gorm.DB, loan *models.Loan) error {
	return r.Conn(ctx, tx).Omit(clause.Associations).Save(loan).Error
}

// CountActive counts the customer's loans that are still out.
func (r *Repository) CountActive(ctx context.Context, tx *gorm.DB, customerID uint) (int64, error) {
	var n int64
	err := r.Conn(ctx, tx).Model(&models.Loan{}).
		Where("customer_id = ? AND status = ?", customerID, enums.LoanStatusActive).
		Count(&n).Error
	return n, err
}

// FindForUpdate loads a loan with its copy, book and customer, locking the
// loan row on Postgres.
func (r *Repository) FindForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Loan, error) {
	q := r.Conn(ctx, tx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "loans"}})
	}
	var loan models.Loan
	err := q.Preload("Copy.Book").Preload("Customer.User").First(&loan, "loans.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListActive pages active loans, optionally matching the customer's name or
// DNI, soonest due first.
func (r *Repository) ListActive(ctx context.Context, query string, page pagination.Page) ([]models.Loan, int64, error) {
	q := r.DB(ctx).Model(&models.Loan{}).
		Joins("JOIN customers ON customers.id = loans.customer_id").
		Joins("JOIN users ON users.id = customers.user_id").
		Where("loans.status = ?", enums.LoanStatusActive)
	if query = strings.ToLower(strings.TrimSpace(query)); query != "" {
		like := "%" + query + "%"
		q = q.Where("lower(users.first_name) LIKE ? OR lower(users.last_name) LIKE ? OR customers.dni LIKE ?", like, like, like)
	}

	total, page, err := repo.CountPage(q, page)
	if err != nil {
		return nil, 0, err
	}

	var loans []models.Loan
	err = q.Preload("Copy.Book").Preload("Customer.User").
		Order("loans.due_date ASC").Order("loans.id ASC").
		Scopes(repo.Paged(page)).
		Find(&loans).Error
	return loans, total, err
}

// ListByCustomer returns every loan of a customer, active ones first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.DB(ctx).
		Preload("Copy.Book").
		Where("customer_id = ?", customerID).
		Order(clause.Expr{SQL: "CASE WHEN status = ? THEN 0 ELSE 1 END", Vars: []any{enums.LoanStatusActive}}).
		Order("start_date DESC").Order("id DESC").
		Find(&loans).Error
	return loans, err
}

// CountActiveAll counts every loan still out.
func (r *Repository) CountActiveAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Loan{}).Where("status = ?", enums.LoanStatusActive).Count(&n).Error
	return n, err
}

// CountOverdueAll counts loans past due on today.
func (r *Repository) CountOverdueAll(ctx context.Context, today time.Time) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Loan{}).
		Where("status = ? AND returned_at IS NULL AND due_date < ?", enums.LoanStatusActive, today).
		Count(&n).Error
	return n, err
}

// Overdue lists every overdue loan with its customer and book, for reminders.
func (r *Repository) Overdue(ctx context.Context, today time.Time) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.DB(ctx).
		Preload("Copy.Book").Preload("Customer.User").
		Where("status = ? AND returned_at IS NULL AND due_date < ?", enums.LoanStatusActive, today).
		Order("customer_id").Order("due_date").
		Find(&loans).Error
	return loans, err
}
