package models

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// Reservation holds a title for a customer until it expires or is invoiced.
type Reservation struct {
	ID         uint                    `gorm:"column:id;primaryKey"`
	CustomerID uint                    `gorm:"column:customer_id;not null;index"`
	Customer   Customer                `gorm:"foreignKey:CustomerID"`
	BookID     uint                    `gorm:"column:book_id;not null;index"`
	Book       Book                    `gorm:"foreignKey:BookID"`
	ReservedAt time.Time               `gorm:"column:reserved_at;not null"`
	ExpiresAt  time.Time               `gorm:"column:expires_at;not null;index"`
	Status     enums.ReservationStatus `gorm:"column:status;type:varchar(16);not null;default:activa;index"`
}
