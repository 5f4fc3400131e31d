package users

import (
	"context"
	"time"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, in NewUser) (*models.User, error) {
	user := in.model()
	if err := r.Conn(ctx, tx).Omit(clause.Associations).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email, with its role.
func (r *Repository) FindByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := r.Conn(ctx, tx).Preload("Role").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user and its role.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Preload("Role").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail reports whether any account uses email.
func (r *Repository) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	var n int64
	err := r.Conn(ctx, tx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

// EnsureRole returns the role row, creating it when the seed is missing.
func (r *Repository) EnsureRole(ctx context.Context, tx *gorm.DB, name enums.Role) (*models.Role, error) {
	role := models.Role{Name: name}
	err := r.Conn(ctx, tx).
		Where(models.Role{Name: name}).
		Attrs(models.Role{Description: name.String()}).
		FirstOrCreate(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePassword stores a new hash and clears the first-login flag.
func (r *Repository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"password_hash": hash, "first_login": false}).Error
}

// UpdatePasswordHash swaps the stored hash only, e.g. when upgrading a legacy hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
}

// CountActiveStaff counts active librarians and administrators.
func (r *Repository) CountActiveStaff(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.status = ? AND roles.name IN ?", enums.RecordStatusActive, []enums.Role{enums.RoleLibrarian, enums.RoleAdmin}).
		Count(&n).Error
	return n, err
}
