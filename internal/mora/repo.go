package mora

import (
	"context"
	"time"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads loan state and writes block state for the engine.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to block operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Customer loads a customer row, locking it on Postgres.
func (r *Repository) Customer(ctx context.Context, tx *gorm.DB, id uint) (*models.Customer, error) {
	var customer models.Customer
	q := r.Conn(ctx, tx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// CountOverdue counts active, unreturned loans due before today.
func (r *Repository) CountOverdue(ctx context.Context, tx *gorm.DB, customerID uint, today time.Time) (int64, error) {
	var n int64
	err := r.Conn(ctx, tx).Model(&models.Loan{}).
		Where("customer_id = ? AND status = ? AND returned_at IS NULL AND due_date < ?",
			customerID, enums.LoanStatusActive, today).
		Count(&n).Error
	return n, err
}

// SaveBlock persists the block columns of customer.
func (r *Repository) SaveBlock(ctx context.Context, tx *gorm.DB, customer *models.Customer) error {
	return r.Conn(ctx, tx).Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Updates(map[string]any{
			"blocked":      customer.Blocked,
			"block_kind":   customer.BlockKind,
			"block_reason": customer.BlockReason,
			"blocked_at":   customer.BlockedAt,
		}).Error
}

// SweepCandidates lists customers that either have an overdue loan or carry
// an automatic block that may now be lifted.
func (r *Repository) SweepCandidates(ctx context.Context, today time.Time) ([]uint, error) {
	overdue := r.DB(ctx).Model(&models.Loan{}).
		Select("customer_id").
		Where("status = ? AND returned_at IS NULL AND due_date < ?", enums.LoanStatusActive, today)

	var ids []uint
	err := r.DB(ctx).Model(&models.Customer{}).
		Where("id IN (?) OR (blocked = ? AND block_kind = ?)", overdue, true, enums.BlockKindAutomatic).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}
