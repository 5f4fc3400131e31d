package salerequests

import (
	"context"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists sale requests.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to sale request operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a request.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, req *models.SaleRequest) error {
	return r.Conn(ctx, tx).Omit(clause.Associations).Create(req).Error
}

// ExistsPendingForReservation reports whether a reservation already has a
// request waiting on staff.
func (r *Repository) ExistsPendingForReservation(ctx context.Context, tx *gorm.DB, reservationID uint) (bool, error) {
	var n int64
	err := r.Conn(ctx, tx).Model(&models.SaleRequest{}).
		Where("reservation_id = ? AND status = ?", reservationID, enums.SaleRequestStatusPending).
		Count(&n).Error
	return n > 0, err
}

// FindForUpdate loads a request with its book, customer and reservation,
// locking the row on postgres.
func (r *Repository) FindForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.SaleRequest, error) {
	q := r.Conn(ctx, tx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "sale_requests"}})
	}
	var req models.SaleRequest
	err := q.Preload("Book").
		Preload("Customer.User").
		Preload("Reservation").
		Where("sale_requests.id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindOwned loads a request only if it belongs to customerID.
func (r *Repository) FindOwned(ctx context.Context, tx *gorm.DB, id, customerID uint) (*models.SaleRequest, error) {
	var req models.SaleRequest
	err := r.Conn(ctx, tx).Preload("Book").
		Where("id = ? AND customer_id = ?", id, customerID).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// SetStatus moves a request to status.
func (r *Repository) SetStatus(ctx context.Context, tx *gorm.DB, id uint, status enums.SaleRequestStatus) error {
	return r.Conn(ctx, tx).Model(&models.SaleRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status}).Error
}

// ListByCustomer returns every request of a customer, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uint) ([]models.SaleRequest, error) {
	var rows []models.SaleRequest
	err := r.DB(ctx).Preload("Book").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ListPending pages through requests awaiting staff, oldest first.
func (r *Repository) ListPending(ctx context.Context, page pagination.Page) ([]models.SaleRequest, int64, error) {
	q := r.DB(ctx).Model(&models.SaleRequest{}).
		Where("status = ?", enums.SaleRequestStatusPending)

	total, page, err := repo.CountPage(q, page)
	if err != nil {
		return nil, 0, err
	}

	var rows []models.SaleRequest
	err = q.Preload("Book").Preload("Customer.User").
		Order("created_at ASC").Order("id ASC").
		Scopes(repo.Paged(page)).
		Find(&rows).Error
	return rows, total, err
}
