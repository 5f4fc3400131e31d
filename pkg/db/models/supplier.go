package models

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// Supplier provides books for restocking.
type Supplier struct {
	ID        uint               `gorm:"column:id;primaryKey"`
	Name      string             `gorm:"column:name;not null;uniqueIndex"`
	Contact   string             `gorm:"column:contact;not null;default:''"`
	Email     string             `gorm:"column:email;not null;default:''"`
	Phone     string             `gorm:"column:phone;not null;default:''"`
	Status    enums.RecordStatus `gorm:"column:status;type:varchar(16);not null;default:activo"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}
