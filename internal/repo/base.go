// Package repo holds the GORM plumbing shared by the domain repositories:
// transaction-aware handles and the page and cursor scopes used by listings.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/biblionet/biblionet-backend/pkg/pagination"
)

// Base is embedded by every repository.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Conn resolves the handle a repository call should use: the caller's
// transaction when one is given, otherwise the context-bound connection.
func (b Base) Conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return b.DB(ctx)
}

// CountPage counts the rows q matches and pulls page back to the last page
// when it overshoots. q is not modified.
func CountPage(q *gorm.DB, page pagination.Page) (int64, pagination.Page, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, page, err
	}
	return total, page.Clamp(total), nil
}

// Paged limits a query to one numbered page.
func Paged(page pagination.Page) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Offset(page.Offset()).Limit(page.Size)
	}
}

// NewestBefore orders newest first on (created_at, id) and resumes after
// cursor when one is given. table qualifies the columns for joined queries.
func NewestBefore(table string, cursor *pagination.Cursor) func(*gorm.DB) *gorm.DB {
	created, id := "created_at", "id"
	if table != "" {
		created, id = table+".created_at", table+".id"
	}
	return func(q *gorm.DB) *gorm.DB {
		if cursor != nil {
			q = q.Where("("+created+" < ?) OR ("+created+" = ? AND "+id+" < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return q.Order(created + " DESC").Order(id + " DESC")
	}
}
