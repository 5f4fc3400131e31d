package models

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// SaleRequest is a customer's ask to buy a title, consumed by staff into a Sale.
type SaleRequest struct {
	ID            uint                    `gorm:"column:id;primaryKey"`
	CustomerID    uint                    `gorm:"column:customer_id;not null;index"`
	Customer      Customer                `gorm:"foreignKey:CustomerID"`
	BookID        uint                    `gorm:"column:book_id;not null"`
	Book          Book                    `gorm:"foreignKey:BookID"`
	ReservationID *uint                   `gorm:"column:reservation_id;index"`
	Reservation   *Reservation            `gorm:"foreignKey:ReservationID"`
	Quantity      int                     `gorm:"column:quantity;not null;check:quantity > 0"`
	Status        enums.SaleRequestStatus `gorm:"column:status;type:varchar(16);not null;default:pendiente;index"`
	Origin        enums.SaleRequestOrigin `gorm:"column:origin;type:varchar(16);not null"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
