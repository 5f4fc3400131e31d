package audit

import (
	"context"
	"strings"
	"time"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository persists audit log entries.
type Repository struct {
	repo.Base
	now func() time.Time
}

// NewRepository binds a GORM DB to audit operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db), now: time.Now}
}

// Record appends an entry. Pass the workflow's tx so the entry commits or
// rolls back together with the change it describes. A zero actor is the
// system and is stored without a user.
func (r *Repository) Record(ctx context.Context, tx *gorm.DB, actorID *uint, action string) error {
	if actorID != nil && *actorID == 0 {
		actorID = nil
	}
	entry := &models.AuditLogEntry{
		UserID:    actorID,
		Action:    strings.TrimSpace(action),
		CreatedAt: r.now().UTC(),
	}
	return r.Conn(ctx, tx).Omit("User").Create(entry).Error
}

// List returns entries newest first, one page past the cursor. The returned
// slice may hold limit+1 rows so the caller can detect a next page.
func (r *Repository) List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.AuditLogEntry, error) {
	var rows []models.AuditLogEntry
	err := r.DB(ctx).Model(&models.AuditLogEntry{}).Preload("User").
		Scopes(repo.NewestBefore("", cursor)).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
