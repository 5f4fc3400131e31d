package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/biblionet/biblionet-backend/internal/testdb"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"github.com/stretchr/testify/require"
)

func TestRecordWritesInsideTransaction(t *testing.T) {
	conn := testdb.Open(t, "audit_tx")
	repo := NewRepository(conn)
	ctx := context.Background()
	staff := testdb.Staff(t, conn, "ana@biblionet.hn", enums.RoleLibrarian)

	tx := conn.Begin()
	require.NoError(t, repo.Record(ctx, tx, &staff.ID, "  DEVOLVIÓ PRÉSTAMO id=1 "))
	require.NoError(t, tx.Rollback().Error)

	var count int64
	require.NoError(t, conn.Model(&models.AuditLogEntry{}).Count(&count).Error)
	require.Zero(t, count, "rolled back entry must not persist")

	require.NoError(t, repo.Record(ctx, nil, &staff.ID, "  DEVOLVIÓ PRÉSTAMO id=1 "))
	var entry models.AuditLogEntry
	require.NoError(t, conn.First(&entry).Error)
	require.Equal(t, "DEVOLVIÓ PRÉSTAMO id=1", entry.Action)
}

func TestRecordZeroActorIsSystem(t *testing.T) {
	conn := testdb.Open(t, "audit_system")
	repo := NewRepository(conn)

	var system uint
	require.NoError(t, repo.Record(context.Background(), nil, &system, "BARRIDO DE MORA"))

	var entry models.AuditLogEntry
	require.NoError(t, conn.First(&entry).Error)
	require.Nil(t, entry.UserID)
}

func TestServiceListPagesNewestFirst(t *testing.T) {
	conn := testdb.Open(t, "audit_list")
	repo := NewRepository(conn)
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	step := 0
	repo.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}
	staff := testdb.Staff(t, conn, "admin@biblionet.hn", enums.RoleAdmin)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Record(ctx, nil, &staff.ID, fmt.Sprintf("ACCION %d", i)))
	}

	svc, err := NewService(repo)
	require.NoError(t, err)

	first, err := svc.List(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, "ACCION 3", first.Items[0].Action)
	require.Equal(t, "admin@biblionet.hn", first.Items[0].UserEmail)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Equal(t, "ACCION 1", second.Items[0].Action)
	require.Empty(t, second.NextCursor)
}

func TestServiceListRejectsBadCursor(t *testing.T) {
	svc, err := NewService(NewRepository(testdb.Open(t, "audit_cursor")))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
