package models

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/enums"
)

// Copy is a physical instance of a Book, created when it is lent.
type Copy struct {
	ID        uint                `gorm:"column:id;primaryKey"`
	BookID    uint                `gorm:"column:book_id;not null;index"`
	Book      Book                `gorm:"foreignKey:BookID"`
	Code      string              `gorm:"column:code;not null;uniqueIndex"`
	Location  string              `gorm:"column:location;not null"`
	Condition enums.CopyCondition `gorm:"column:condition;type:varchar(16);not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
