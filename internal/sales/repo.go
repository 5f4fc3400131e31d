package sales

import (
	"context"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists sales and their lines.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to sale operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts the header and then its lines.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, sale *models.Sale) error {
	conn := r.Conn(ctx, tx)
	if err := conn.Omit(clause.Associations).Create(sale).Error; err != nil {
		return err
	}
	for i := range sale.Lines {
		sale.Lines[i].SaleID = sale.ID
		if err := conn.Omit(clause.Associations).Create(&sale.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// ExistsReceipt reports whether a receipt code is taken.
func (r *Repository) ExistsReceipt(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var n int64
	err := r.Conn(ctx, tx).Model(&models.Sale{}).Where("receipt_code = ?", code).Count(&n).Error
	return n > 0, err
}

// FindByID loads a sale with everything a receipt shows.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := withReceipt(r.DB(ctx)).Where("sales.id = ?", id).First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// List pages sales newest first.
func (r *Repository) List(ctx context.Context, page pagination.Page) ([]models.Sale, int64, error) {
	q := r.DB(ctx).Model(&models.Sale{})

	total, page, err := repo.CountPage(q, page)
	if err != nil {
		return nil, 0, err
	}

	var rows []models.Sale
	err = withReceipt(q).
		Scopes(repo.NewestBefore("", nil), repo.Paged(page)).
		Find(&rows).Error
	return rows, total, err
}

func withReceipt(q *gorm.DB) *gorm.DB {
	return q.Preload("Customer.User").Preload("Seller").Preload("Lines.Book")
}
