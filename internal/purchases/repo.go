package purchases

import (
	"context"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists supplier purchases.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to purchase operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// NextID is the id the next purchase row is expected to take.
func (r *Repository) NextID(ctx context.Context, tx *gorm.DB) (uint, error) {
	var maxID uint
	err := r.Conn(ctx, tx).Model(&models.Purchase{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error
	return maxID + 1, err
}

// Create inserts the header and then its lines.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, p *models.Purchase) error {
	conn := r.Conn(ctx, tx)
	if err := conn.Omit(clause.Associations).Create(p).Error; err != nil {
		return err
	}
	for i := range p.Lines {
		p.Lines[i].PurchaseID = p.ID
		if err := conn.Omit(clause.Associations).Create(&p.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// List pages purchases newest first.
func (r *Repository) List(ctx context.Context, page pagination.Page) ([]models.Purchase, int64, error) {
	q := r.DB(ctx).Model(&models.Purchase{})

	total, page, err := repo.CountPage(q, page)
	if err != nil {
		return nil, 0, err
	}

	var rows []models.Purchase
	err = q.Preload("Supplier").Preload("Lines.Book").
		Scopes(repo.NewestBefore("", nil), repo.Paged(page)).
		Find(&rows).Error
	return rows, total, err
}
