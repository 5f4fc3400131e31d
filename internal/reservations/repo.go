package reservations

import (
	"context"
	"time"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles reservation persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to reservation operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a reservation.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	return r.Conn(ctx, tx).Omit(clause.Associations).Create(res).Error
}

// ExistsActive reports whether the customer already holds a live
// reservation for the book. Lapsed rows the sweep has not reached yet do
// not count.
func (r *Repository) ExistsActive(ctx context.Context, tx *gorm.DB, customerID, bookID uint, now time.Time) (bool, error) {
	var n int64
	err := r.Conn(ctx, tx).Model(&models.Reservation{}).
		Where("customer_id = ? AND book_id = ? AND status = ? AND expires_at > ?",
			customerID, bookID, enums.ReservationStatusActive, now).
		Count(&n).Error
	return n > 0, err
}

// ExpireLapsed marks the customer's lapsed holds on the book as expired so a
// new hold does not collide with them on the active-hold index.
func (r *Repository) ExpireLapsed(ctx context.Context, tx *gorm.DB, customerID, bookID uint, now time.Time) error {
	return r.Conn(ctx, tx).Model(&models.Reservation{}).
		Where("customer_id = ? AND book_id = ? AND status = ? AND expires_at <= ?",
			customerID, bookID, enums.ReservationStatusActive, now).
		UpdateColumn("status", enums.ReservationStatusExpired).Error
}

// FindOwned loads a reservation only if it belongs to customerID.
func (r *Repository) FindOwned(ctx context.Context, tx *gorm.DB, id, customerID uint) (*models.Reservation, error) {
	q := r.Conn(ctx, tx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "reservations"}})
	}
	var res models.Reservation
	err := q.Preload("Book").
		Where("reservations.id = ? AND reservations.customer_id = ?", id, customerID).
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SetStatus moves a reservation to status.
func (r *Repository) SetStatus(ctx context.Context, tx *gorm.DB, id uint, status enums.ReservationStatus) error {
	return r.Conn(ctx, tx).Model(&models.Reservation{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// MarkInvoiced moves a reservation from active to invoiced. It reports false
// when the reservation was no longer active.
func (r *Repository) MarkInvoiced(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	res := r.Conn(ctx, tx).Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, enums.ReservationStatusActive).
		UpdateColumn("status", enums.ReservationStatusInvoiced)
	return res.RowsAffected > 0, res.Error
}

// ListActive returns the customer's live reservations, newest first.
func (r *Repository) ListActive(ctx context.Context, customerID uint, now time.Time) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.DB(ctx).Preload("Book").
		Where("customer_id = ? AND status = ? AND expires_at > ?", customerID, enums.ReservationStatusActive, now).
		Order("reserved_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ExpireBefore marks every active reservation that lapsed before now.
func (r *Repository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB(ctx).Model(&models.Reservation{}).
		Where("status = ? AND expires_at <= ?", enums.ReservationStatusActive, now).
		UpdateColumn("status", enums.ReservationStatusExpired)
	return res.RowsAffected, res.Error
}
