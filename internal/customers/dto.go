package customers

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// CustomerDTO is the API view of a customer.
type CustomerDTO struct {
	ID          uint               `json:"id"`
	UserID      uint               `json:"user_id"`
	DNI         string             `json:"dni"`
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	Email       string             `json:"email"`
	Address     string             `json:"address"`
	Phone       string             `json:"phone"`
	Status      enums.RecordStatus `json:"status"`
	Blocked     bool               `json:"blocked"`
	BlockKind   *enums.BlockKind   `json:"block_kind,omitempty"`
	BlockReason string             `json:"block_reason,omitempty"`
	BlockedAt   *time.Time         `json:"blocked_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// FromModel renders a customer with its user fields.
func FromModel(m *models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:          m.ID,
		UserID:      m.UserID,
		DNI:         m.DNI,
		FirstName:   m.User.FirstName,
		LastName:    m.User.LastName,
		Email:       m.User.Email,
		Address:     m.Address,
		Phone:       m.Phone,
		Status:      m.Status,
		Blocked:     m.Blocked,
		BlockKind:   m.BlockKind,
		BlockReason: m.Reason(),
		BlockedAt:   m.BlockedAt,
		CreatedAt:   m.CreatedAt,
	}
}
