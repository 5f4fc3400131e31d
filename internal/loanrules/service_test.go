package loanrules

import (
	"context"
	"testing"
	"time"

	"github.com/biblionet/biblionet-backend/internal/audit"
	"github.com/biblionet/biblionet-backend/internal/testdb"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := testdb.Client(t, "loanrules")
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Audit:  audit.NewRepository(conn),
		Tx:     client,
		Logger: logger.Nop(),
		Now:    testdb.FixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return svc, conn
}

func TestCurrentWithoutRuleIsStateConflict(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Current(context.Background())
	require.ErrorIs(t, err, ErrNoRule)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestUpdateKeepsSingletonAndHistory(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	admin := testdb.Staff(t, conn, "admin@biblionet.hn", enums.RoleAdmin)

	_, err := svc.Update(ctx, admin.ID, UpdateInput{TermDays: "7", MaxActiveLoans: "3", DailyFee: "5"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, admin.ID, UpdateInput{TermDays: "14", MaxActiveLoans: "2", DailyFee: "7,5"})
	require.NoError(t, err)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, 14, current.TermDays)
	require.Equal(t, 2, current.MaxActiveLoans)
	require.Equal(t, "7.50", current.DailyFee.StringFixed(2))

	var rules int64
	require.NoError(t, conn.Model(&models.LoanRule{}).Count(&rules).Error)
	require.EqualValues(t, 1, rules)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 14, history[0].TermDays)
	require.Equal(t, 7, history[1].TermDays)

	var entry models.AuditLogEntry
	require.NoError(t, conn.Order("id DESC").First(&entry).Error)
	require.Equal(t, "ACTUALIZÓ REGLAS DE PRÉSTAMO: plazo=14 días, límite=2, mora=7.50", entry.Action)
}

func TestUpdateValidation(t *testing.T) {
	svc, conn := newTestService(t)
	admin := testdb.Staff(t, conn, "admin@biblionet.hn", enums.RoleAdmin)

	cases := []UpdateInput{
		{TermDays: "", MaxActiveLoans: "3", DailyFee: "5"},
		{TermDays: "0", MaxActiveLoans: "3", DailyFee: "5"},
		{TermDays: "7", MaxActiveLoans: "-1", DailyFee: "5"},
		{TermDays: "7", MaxActiveLoans: "3", DailyFee: "-0.5"},
		{TermDays: "siete", MaxActiveLoans: "3", DailyFee: "5"},
	}
	for _, in := range cases {
		_, err := svc.Update(context.Background(), admin.ID, in)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v", in)
	}

	var history int64
	require.NoError(t, conn.Model(&models.LoanRuleHistory{}).Count(&history).Error)
	require.Zero(t, history)
}
