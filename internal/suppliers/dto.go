package suppliers

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// SupplierInput registers a supplier.
type SupplierInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Contact string `json:"contact" validate:"omitempty,max=120"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,max=30"`
}

// StatusInput switches a supplier on or off.
type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

type SupplierDTO struct {
	ID        uint               `json:"id"`
	Name      string             `json:"name"`
	Contact   string             `json:"contact"`
	Email     string             `json:"email"`
	Phone     string             `json:"phone"`
	Status    enums.RecordStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

func FromModel(s *models.Supplier) SupplierDTO {
	return SupplierDTO{
		ID:        s.ID,
		Name:      s.Name,
		Contact:   s.Contact,
		Email:     s.Email,
		Phone:     s.Phone,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
	}
}
