package users

import (
	"strings"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// UserDTO is an account as returned by the API. The password hash never
// leaves the service.
type UserDTO struct {
	ID          uint               `json:"id"`
	Email       string             `json:"email"`
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	FullName    string             `json:"full_name"`
	Role        enums.Role         `json:"role"`
	Staff       bool               `json:"staff"`
	Status      enums.RecordStatus `json:"status"`
	FirstLogin  bool               `json:"first_login"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewUser is the input to Repository.Create. A zero Status means active.
type NewUser struct {
	RoleID       uint
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	FirstLogin   bool
	Status       enums.RecordStatus
}

// FromModel expects the Role association to be loaded.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		Role:        u.Role.Name,
		Staff:       u.Role.Name.IsStaff(),
		Status:      u.Status,
		FirstLogin:  u.FirstLogin,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func (n NewUser) model() *models.User {
	status := n.Status
	if status == "" {
		status = enums.RecordStatusActive
	}
	return &models.User{
		RoleID:       n.RoleID,
		Email:        strings.ToLower(strings.TrimSpace(n.Email)),
		PasswordHash: n.PasswordHash,
		FirstName:    strings.TrimSpace(n.FirstName),
		LastName:     strings.TrimSpace(n.LastName),
		FirstLogin:   n.FirstLogin,
		Status:       status,
	}
}
