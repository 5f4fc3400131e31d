package salerequests

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// CreateInput carries the requested quantity; zero means one unit.
type CreateInput struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// RequestDTO is the API view of a sale request.
type RequestDTO struct {
	ID            uint                    `json:"id"`
	CustomerID    uint                    `json:"customer_id"`
	CustomerName  string                  `json:"customer_name,omitempty"`
	CustomerDNI   string                  `json:"customer_dni,omitempty"`
	BookID        uint                    `json:"book_id"`
	BookTitle     string                  `json:"book_title"`
	ReservationID *uint                   `json:"reservation_id,omitempty"`
	Quantity      int                     `json:"quantity"`
	Status        enums.SaleRequestStatus `json:"status"`
	Origin        enums.SaleRequestOrigin `json:"origin"`
	CreatedAt     time.Time               `json:"created_at"`
}

// FromModel renders a request with whatever associations were preloaded.
func FromModel(r *models.SaleRequest) RequestDTO {
	dto := RequestDTO{
		ID:            r.ID,
		CustomerID:    r.CustomerID,
		BookID:        r.BookID,
		BookTitle:     r.Book.Title,
		ReservationID: r.ReservationID,
		Quantity:      r.Quantity,
		Status:        r.Status,
		Origin:        r.Origin,
		CreatedAt:     r.CreatedAt,
	}
	if r.Customer.ID != 0 {
		dto.CustomerDNI = r.Customer.DNI
		dto.CustomerName = r.Customer.User.FullName()
	}
	return dto
}

// Result pairs a request with the message shown to the customer.
type Result struct {
	Message string     `json:"message"`
	Request RequestDTO `json:"request"`
}
