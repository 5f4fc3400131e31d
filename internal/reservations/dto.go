package reservations

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// ReservationDTO is the API view of a reservation.
type ReservationDTO struct {
	ID         uint                    `json:"id"`
	BookID     uint                    `json:"book_id"`
	BookTitle  string                  `json:"book_title"`
	BookAuthor string                  `json:"book_author"`
	ReservedAt time.Time               `json:"reserved_at"`
	ExpiresAt  time.Time               `json:"expires_at"`
	Status     enums.ReservationStatus `json:"status"`
}

// FromModel renders a reservation with its book.
func FromModel(r *models.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:         r.ID,
		BookID:     r.BookID,
		BookTitle:  r.Book.Title,
		BookAuthor: r.Book.Author,
		ReservedAt: r.ReservedAt,
		ExpiresAt:  r.ExpiresAt,
		Status:     r.Status,
	}
}

// Result pairs a reservation with the message shown to the customer.
type Result struct {
	Message     string         `json:"message"`
	Reservation ReservationDTO `json:"reservation"`
}
