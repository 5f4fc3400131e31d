package customers

import (
	"context"
	"strings"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles customer persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to customer operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a customer profile; the user must already exist.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, customer *models.Customer) error {
	return r.Conn(ctx, tx).Omit(clause.Associations).Create(customer).Error
}

// FindByID loads a customer and its user.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.Conn(ctx, tx).Preload("User").First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByUserID loads the customer attached to a user account.
func (r *Repository) FindByUserID(ctx context.Context, userID uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB(ctx).Preload("User").Where("user_id = ?", userID).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindActiveByDNI loads an active customer by national ID.
func (r *Repository) FindActiveByDNI(ctx context.Context, tx *gorm.DB, dni string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.Conn(ctx, tx).Preload("User").
		Where("dni = ? AND lower(status) = ?", strings.TrimSpace(dni), enums.RecordStatusActive).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// ExistsByDNI reports whether any customer carries dni.
func (r *Repository) ExistsByDNI(ctx context.Context, tx *gorm.DB, dni string) (bool, error) {
	var n int64
	err := r.Conn(ctx, tx).Model(&models.Customer{}).Where("dni = ?", dni).Count(&n).Error
	return n > 0, err
}

// List pages customers matching query over first name, last name or DNI.
func (r *Repository) List(ctx context.Context, query string, page pagination.Page) ([]models.Customer, int64, error) {
	q := r.DB(ctx).Model(&models.Customer{}).
		Joins("JOIN users ON users.id = customers.user_id")
	if query = strings.ToLower(strings.TrimSpace(query)); query != "" {
		like := "%" + query + "%"
		q = q.Where("lower(users.first_name) LIKE ? OR lower(users.last_name) LIKE ? OR lower(customers.dni) LIKE ?", like, like, like)
	}

	total, page, err := repo.CountPage(q, page)
	if err != nil {
		return nil, 0, err
	}

	var rows []models.Customer
	err = q.Preload("User").
		Order("users.last_name").Order("users.first_name").Order("customers.id").
		Scopes(repo.Paged(page)).
		Find(&rows).Error
	return rows, total, err
}
