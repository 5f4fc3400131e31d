package models

import (
	"strings"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// User represents the canonical identity entity for customers and staff.
type User struct {
	ID           uint               `gorm:"column:id;primaryKey"`
	RoleID       uint               `gorm:"column:role_id;not null;index"`
	Role         Role               `gorm:"foreignKey:RoleID"`
	FirstName    string             `gorm:"column:first_name;not null"`
	LastName     string             `gorm:"column:last_name;not null"`
	Email        string             `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string             `gorm:"column:password_hash;not null"`
	Status       enums.RecordStatus `gorm:"column:status;type:varchar(16);not null;default:activo"`
	FirstLogin   bool               `gorm:"column:first_login;not null;default:false"`
	LastLoginAt  *time.Time         `gorm:"column:last_login_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsActive reports whether the account may sign in.
func (u User) IsActive() bool {
	return u.Status == enums.RecordStatusActive
}
