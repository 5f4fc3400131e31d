package salerequests

import (
	"context"
	"testing"
	"time"

	"github.com/biblionet/biblionet-backend/internal/catalog"
	"github.com/biblionet/biblionet-backend/internal/reservations"
	"github.com/biblionet/biblionet-backend/internal/testdb"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := testdb.Client(t, "salerequests")
	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Reservations: reservations.NewRepository(conn),
		Books:        catalog.NewRepository(conn),
		Tx:           client,
		Logger:       logger.Nop(),
		PageSize:     2,
	})
	require.NoError(t, err)
	return svc, conn
}

func reserve(t *testing.T, conn *gorm.DB, customerID uint, book *models.Book, status enums.ReservationStatus) *models.Reservation {
	t.Helper()
	now := time.Now().UTC()
	res := &models.Reservation{
		CustomerID: customerID,
		BookID:     book.ID,
		ReservedAt: now,
		ExpiresAt:  now.Add(48 * time.Hour),
		Status:     status,
	}
	require.NoError(t, conn.Omit("Customer", "Book").Create(res).Error)
	return res
}

func TestFromReservationDefaultsToOneUnit(t *testing.T) {
	svc, conn := newService(t)
	customer := testdb.Customer(t, conn, "0801199900010")
	book := testdb.Book(t, conn, "9780000000010", 2)
	res := reserve(t, conn, customer.ID, book, enums.ReservationStatusActive)

	out, err := svc.FromReservation(context.Background(), customer.ID, res.ID, CreateInput{})
	require.NoError(t, err)
	require.Equal(t, msgCreated, out.Message)
	require.Equal(t, 1, out.Request.Quantity)
	require.Equal(t, enums.SaleRequestOriginReservation, out.Request.Origin)
	require.Equal(t, book.ID, out.Request.BookID)
	require.Equal(t, book.Title, out.Request.BookTitle)

	_, err = svc.FromReservation(context.Background(), customer.ID, res.ID, CreateInput{Quantity: 2})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, msgAlreadyPending, pkgerrors.As(err).Message())
}

func TestFromReservationRejectsForeignOrInactive(t *testing.T) {
	svc, conn := newService(t)
	owner := testdb.Customer(t, conn, "0801199900011")
	other := testdb.Customer(t, conn, "0801199900012")
	book := testdb.Book(t, conn, "9780000000011", 2)
	active := reserve(t, conn, owner.ID, book, enums.ReservationStatusActive)
	cancelled := reserve(t, conn, owner.ID, book, enums.ReservationStatusCancelled)

	_, err := svc.FromReservation(context.Background(), other.ID, active.ID, CreateInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.FromReservation(context.Background(), owner.ID, cancelled.ID, CreateInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.FromReservation(context.Background(), owner.ID, active.ID, CreateInput{Quantity: -1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestFromBookAndCancel(t *testing.T) {
	svc, conn := newService(t)
	customer := testdb.Customer(t, conn, "0801199900013")
	other := testdb.Customer(t, conn, "0801199900014")
	book := testdb.Book(t, conn, "9780000000012", 5)

	_, err := svc.FromBook(context.Background(), customer.ID, 999, CreateInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	out, err := svc.FromBook(context.Background(), customer.ID, book.ID, CreateInput{Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, enums.SaleRequestOriginDetail, out.Request.Origin)
	require.Nil(t, out.Request.ReservationID)
	require.Equal(t, 3, out.Request.Quantity)

	_, err = svc.Cancel(context.Background(), other.ID, out.Request.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	cancelled, err := svc.Cancel(context.Background(), customer.ID, out.Request.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SaleRequestStatusCancelled, cancelled.Request.Status)

	_, err = svc.Cancel(context.Background(), customer.ID, out.Request.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestListings(t *testing.T) {
	svc, conn := newService(t)
	customer := testdb.Customer(t, conn, "0801199900015")
	book := testdb.Book(t, conn, "9780000000013", 5)

	var ids []uint
	for i := 0; i < 3; i++ {
		out, err := svc.FromBook(context.Background(), customer.ID, book.ID, CreateInput{})
		require.NoError(t, err)
		ids = append(ids, out.Request.ID)
	}
	_, err := svc.Cancel(context.Background(), customer.ID, ids[0])
	require.NoError(t, err)

	own, err := svc.ListOwn(context.Background(), customer.ID)
	require.NoError(t, err)
	require.Len(t, own, 3)
	require.Equal(t, ids[2], own[0].ID)

	pending, err := svc.ListPending(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, pending.Page.Total)
	require.Len(t, pending.Items, 2)
	require.Equal(t, ids[1], pending.Items[0].ID)
	require.Equal(t, customer.DNI, pending.Items[0].CustomerDNI)
	require.Equal(t, "maria reyes", pending.Items[0].CustomerName)
}
