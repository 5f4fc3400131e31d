package suppliers

import (
	"context"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists suppliers.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to supplier operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, tx *gorm.DB, s *models.Supplier) error {
	return r.Conn(ctx, tx).Omit(clause.Associations).Create(s).Error
}

func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Supplier, error) {
	var s models.Supplier
	if err := r.Conn(ctx, tx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ExistsByName matches names case-insensitively.
func (r *Repository) ExistsByName(ctx context.Context, tx *gorm.DB, name string) (bool, error) {
	var n int64
	err := r.Conn(ctx, tx).Model(&models.Supplier{}).
		Where("lower(name) = lower(?)", name).
		Count(&n).Error
	return n > 0, err
}

func (r *Repository) SetStatus(ctx context.Context, tx *gorm.DB, id uint, status enums.RecordStatus) error {
	return r.Conn(ctx, tx).Model(&models.Supplier{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// List returns suppliers by name; activeOnly hides deactivated ones.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.Supplier, error) {
	q := r.DB(ctx).Model(&models.Supplier{})
	if activeOnly {
		q = q.Where("status = ?", enums.RecordStatusActive)
	}
	var rows []models.Supplier
	err := q.Order("name ASC").Find(&rows).Error
	return rows, err
}
