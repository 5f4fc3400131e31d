package models

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// Customer is the library patron profile attached one-to-one to a User.
type Customer struct {
	ID          uint               `gorm:"column:id;primaryKey"`
	UserID      uint               `gorm:"column:user_id;not null;uniqueIndex"`
	User        User               `gorm:"foreignKey:UserID"`
	DNI         string             `gorm:"column:dni;not null;uniqueIndex"`
	Address     string             `gorm:"column:address;not null"`
	Phone       string             `gorm:"column:phone;not null"`
	Status      enums.RecordStatus `gorm:"column:status;type:varchar(16);not null;default:activo"`
	Blocked     bool               `gorm:"column:blocked;not null;default:false"`
	BlockKind   *enums.BlockKind   `gorm:"column:block_kind;type:varchar(16)"`
	BlockReason *string            `gorm:"column:block_reason"`
	BlockedAt   *time.Time         `gorm:"column:blocked_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// IsActive reports whether the customer may borrow or reserve.
func (c Customer) IsActive() bool {
	return c.Status == enums.RecordStatusActive
}

// Reason returns the stored block reason or an empty string.
func (c Customer) Reason() string {
	if c.BlockReason == nil {
		return ""
	}
	return *c.BlockReason
}
