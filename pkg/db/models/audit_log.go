package models

import "time"

// AuditLogEntry is an append-only record of a mutating action.
type AuditLogEntry struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	UserID    *uint     `gorm:"column:user_id;index"`
	User      *User     `gorm:"foreignKey:UserID"`
	Action    string    `gorm:"column:action;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
}

func (AuditLogEntry) TableName() string {
	return "audit_log"
}
