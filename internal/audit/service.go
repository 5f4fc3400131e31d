package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"github.com/biblionet/biblionet-backend/pkg/types"
)

type auditRepository interface {
	List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.AuditLogEntry, error)
}

// EntryDTO is one rendered audit row.
type EntryDTO struct {
	ID        uint      `json:"id"`
	UserID    *uint     `json:"user_id,omitempty"`
	UserEmail string    `json:"user_email,omitempty"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Service exposes the audit trail to administrators.
type Service interface {
	List(ctx context.Context, params pagination.Params) (*types.CursorEnvelope[EntryDTO], error)
}

type service struct {
	repo auditRepository
}

// NewService builds the audit reader.
func NewService(repo auditRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*types.CursorEnvelope[EntryDTO], error) {
	window, err := params.Window()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cursor inválido")
	}

	rows, err := s.repo.List(ctx, window.Fetch(), window.After)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar bitácora")
	}

	rows, next := pagination.Split(rows, window.Limit, func(row models.AuditLogEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	out := &types.CursorEnvelope[EntryDTO]{Items: make([]EntryDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		dto := EntryDTO{ID: row.ID, UserID: row.UserID, Action: row.Action, CreatedAt: row.CreatedAt}
		if row.User != nil {
			dto.UserEmail = row.User.Email
		}
		out.Items = append(out.Items, dto)
	}
	return out, nil
}
