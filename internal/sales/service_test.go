package sales

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/biblionet/biblionet-backend/internal/audit"
	"github.com/biblionet/biblionet-backend/internal/catalog"
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/internal/reservations"
	"github.com/biblionet/biblionet-backend/internal/salerequests"
	"github.com/biblionet/biblionet-backend/internal/testdb"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type counter struct {
	svc    Service
	conn   *gorm.DB
	seller *models.User
	reg    *prometheus.Registry
}

func newCounter(t *testing.T) counter {
	t.Helper()
	client, conn := testdb.Client(t, "sales")
	reg := prometheus.NewRegistry()
	m := metrics.NewLibraryMetrics(reg)
	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(conn),
		Requests:      salerequests.NewRepository(conn),
		Reservations:  reservations.NewRepository(conn),
		Customers:     customers.NewRepository(conn),
		Books:         catalog.NewRepository(conn),
		Audit:         audit.NewRepository(conn),
		Tx:            client,
		Logger:        logger.Nop(),
		Metrics:       m,
		ReceiptPrefix: "VTA",
		PageSize:      10,
	})
	require.NoError(t, err)
	return counter{
		svc:    svc,
		conn:   conn,
		seller: testdb.Staff(t, conn, "caja@biblionet.hn", enums.RoleLibrarian),
		reg:    reg,
	}
}

func stockOf(t *testing.T, conn *gorm.DB, bookID uint) int {
	t.Helper()
	var book models.Book
	require.NoError(t, conn.First(&book, bookID).Error)
	return book.Stock
}

func TestWalkInComputesTotalsAndDecrementsStock(t *testing.T) {
	c := newCounter(t)
	customer := testdb.Customer(t, c.conn, "0801199900020")
	book := testdb.Book(t, c.conn, "9780000000020", 3)

	out, err := c.svc.WalkIn(context.Background(), c.seller.ID, WalkInInput{
		DNI:           customer.DNI,
		ISBN:          book.ISBN,
		Quantity:      2,
		PaymentMethod: "Efectivo",
	})
	require.NoError(t, err)

	receipt := out.Receipt
	require.True(t, strings.HasPrefix(receipt.ReceiptCode, "VTA-"))
	require.Equal(t, "200.00", receipt.Subtotal.StringFixed(2))
	require.Equal(t, "30.00", receipt.Tax.StringFixed(2))
	require.Equal(t, "230.00", receipt.Total.StringFixed(2))
	require.Equal(t, enums.SaleStatusPaid, receipt.Status)
	require.Equal(t, enums.PaymentMethodCash, receipt.PaymentMethod)
	require.Len(t, receipt.Lines, 1)
	require.Equal(t, "15.00", receipt.Lines[0].UnitTax.StringFixed(2))
	require.Equal(t, "maria reyes", receipt.CustomerName)
	require.Equal(t, "ana lopez", receipt.SellerName)
	require.Equal(t, 1, stockOf(t, c.conn, book.ID))

	var entry models.AuditLogEntry
	require.NoError(t, c.conn.Order("id DESC").First(&entry).Error)
	require.Equal(t, "REGISTRÓ VENTA "+receipt.ReceiptCode+": total=230.00", entry.Action)

	require.Equal(t, 1.0, salesCounted(t, c.reg, "efectivo"))
}

func TestWalkInInsufficientStockWritesNothing(t *testing.T) {
	c := newCounter(t)
	customer := testdb.Customer(t, c.conn, "0801199900021")
	book := testdb.Book(t, c.conn, "9780000000021", 1)

	_, err := c.svc.WalkIn(context.Background(), c.seller.ID, WalkInInput{
		DNI: customer.DNI, ISBN: book.ISBN, Quantity: 2, PaymentMethod: "tarjeta",
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, 1, stockOf(t, c.conn, book.ID))

	var n int64
	require.NoError(t, c.conn.Model(&models.Sale{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestWalkInValidation(t *testing.T) {
	c := newCounter(t)
	customer := testdb.Customer(t, c.conn, "0801199900022")
	book := testdb.Book(t, c.conn, "9780000000022", 1)

	cases := map[string]WalkInInput{
		"missing dni":  {ISBN: book.ISBN, PaymentMethod: "efectivo"},
		"bad method":   {DNI: customer.DNI, ISBN: book.ISBN, PaymentMethod: "bitcoin"},
		"negative qty": {DNI: customer.DNI, ISBN: book.ISBN, Quantity: -1, PaymentMethod: "efectivo"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.svc.WalkIn(context.Background(), c.seller.ID, input)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	_, err := c.svc.WalkIn(context.Background(), c.seller.ID, WalkInInput{DNI: "000", ISBN: book.ISBN, PaymentMethod: "efectivo"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestInvoiceRequestClosesReservation(t *testing.T) {
	c := newCounter(t)
	customer := testdb.Customer(t, c.conn, "0801199900023")
	book := testdb.Book(t, c.conn, "9780000000023", 2)
	now := time.Now().UTC()
	res := &models.Reservation{CustomerID: customer.ID, BookID: book.ID, ReservedAt: now, ExpiresAt: now.Add(48 * time.Hour), Status: enums.ReservationStatusActive}
	require.NoError(t, c.conn.Omit("Customer", "Book").Create(res).Error)
	req := &models.SaleRequest{CustomerID: customer.ID, BookID: book.ID, ReservationID: &res.ID, Quantity: 1, Status: enums.SaleRequestStatusPending, Origin: enums.SaleRequestOriginReservation}
	require.NoError(t, c.conn.Omit("Customer", "Book", "Reservation").Create(req).Error)

	out, err := c.svc.InvoiceRequest(context.Background(), c.seller.ID, req.ID, InvoiceInput{PaymentMethod: "transferencia"})
	require.NoError(t, err)
	require.Equal(t, "115.00", out.Receipt.Total.StringFixed(2))
	require.NotNil(t, out.Receipt.SaleRequestID)
	require.Equal(t, req.ID, *out.Receipt.SaleRequestID)

	var storedReq models.SaleRequest
	require.NoError(t, c.conn.First(&storedReq, req.ID).Error)
	require.Equal(t, enums.SaleRequestStatusAttended, storedReq.Status)
	var storedRes models.Reservation
	require.NoError(t, c.conn.First(&storedRes, res.ID).Error)
	require.Equal(t, enums.ReservationStatusInvoiced, storedRes.Status)
	require.Equal(t, 1, stockOf(t, c.conn, book.ID))

	_, err = c.svc.InvoiceRequest(context.Background(), c.seller.ID, req.ID, InvoiceInput{PaymentMethod: "efectivo"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = c.svc.InvoiceRequest(context.Background(), c.seller.ID, 999, InvoiceInput{PaymentMethod: "efectivo"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListAndGet(t *testing.T) {
	c := newCounter(t)
	customer := testdb.Customer(t, c.conn, "0801199900024")
	book := testdb.Book(t, c.conn, "9780000000024", 5)

	var last uint
	for i := 0; i < 2; i++ {
		out, err := c.svc.WalkIn(context.Background(), c.seller.ID, WalkInInput{DNI: customer.DNI, ISBN: book.ISBN, PaymentMethod: "efectivo"})
		require.NoError(t, err)
		last = out.Receipt.ID
	}

	page, err := c.svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Page.Total)
	require.Equal(t, last, page.Items[0].ID)

	got, err := c.svc.Get(context.Background(), last)
	require.NoError(t, err)
	require.Equal(t, book.ISBN, got.Lines[0].ISBN)

	_, err = c.svc.Get(context.Background(), 999)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func salesCounted(t *testing.T, reg *prometheus.Registry, method string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "biblionet_sales_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "payment_method" && label.GetValue() == method {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestInvoiceRequestLeavesClosedReservationAlone(t *testing.T) {
	c := newCounter(t)
	customer := testdb.Customer(t, c.conn, "0801199900025")
	book := testdb.Book(t, c.conn, "9780000000025", 2)
	now := time.Now().UTC()
	res := &models.Reservation{CustomerID: customer.ID, BookID: book.ID, ReservedAt: now, ExpiresAt: now.Add(48 * time.Hour), Status: enums.ReservationStatusCancelled}
	require.NoError(t, c.conn.Omit("Customer", "Book").Create(res).Error)
	req := &models.SaleRequest{CustomerID: customer.ID, BookID: book.ID, ReservationID: &res.ID, Quantity: 1, Status: enums.SaleRequestStatusPending, Origin: enums.SaleRequestOriginReservation}
	require.NoError(t, c.conn.Omit("Customer", "Book", "Reservation").Create(req).Error)

	_, err := c.svc.InvoiceRequest(context.Background(), c.seller.ID, req.ID, InvoiceInput{PaymentMethod: "efectivo"})
	require.NoError(t, err)

	var stored models.Reservation
	require.NoError(t, c.conn.First(&stored, res.ID).Error)
	require.Equal(t, enums.ReservationStatusCancelled, stored.Status)
}
