// Package sales turns pending sale requests and counter selections into paid
// sales. Both entry points share one pricing and stock path.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biblionet/biblionet-backend/internal/stock"
	"github.com/biblionet/biblionet-backend/pkg/db"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/id"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
	"github.com/biblionet/biblionet-backend/pkg/money"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"github.com/biblionet/biblionet-backend/pkg/types"
	"gorm.io/gorm"
)

const receiptAttempts = 3

type saleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sale *models.Sale) error
	ExistsReceipt(ctx context.Context, tx *gorm.DB, code string) (bool, error)
	FindByID(ctx context.Context, id uint) (*models.Sale, error)
	List(ctx context.Context, page pagination.Page) ([]models.Sale, int64, error)
}

type requestRepository interface {
	FindForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.SaleRequest, error)
	SetStatus(ctx context.Context, tx *gorm.DB, id uint, status enums.SaleRequestStatus) error
}

type reservationUpdater interface {
	MarkInvoiced(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

type customerFinder interface {
	FindActiveByDNI(ctx context.Context, tx *gorm.DB, dni string) (*models.Customer, error)
}

type bookFinder interface {
	FindByISBN(ctx context.Context, tx *gorm.DB, isbn string) (*models.Book, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, actorID *uint, action string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service registers and lists sales.
type Service interface {
	InvoiceRequest(ctx context.Context, sellerID, requestID uint, input InvoiceInput) (*Result, error)
	WalkIn(ctx context.Context, sellerID uint, input WalkInInput) (*Result, error)
	List(ctx context.Context, page int) (*types.PageEnvelope[ReceiptDTO], error)
	Get(ctx context.Context, id uint) (*ReceiptDTO, error)
}

// ServiceParams groups sale dependencies.
type ServiceParams struct {
	Repo          saleRepository
	Requests      requestRepository
	Reservations  reservationUpdater
	Customers     customerFinder
	Books         bookFinder
	Audit         auditRecorder
	Tx            txRunner
	Logger        *logger.Logger
	Metrics       *metrics.LibraryMetrics
	ReceiptPrefix string
	PageSize      int
}

type service struct {
	repo          saleRepository
	requests      requestRepository
	reservations  reservationUpdater
	customers     customerFinder
	books         bookFinder
	audit         auditRecorder
	tx            txRunner
	logg          *logger.Logger
	metrics       *metrics.LibraryMetrics
	receiptPrefix string
	pageSize      int
}

// NewService wires the point of sale.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("sale repository required")
	case params.Requests == nil:
		return nil, fmt.Errorf("sale request repository required")
	case params.Reservations == nil:
		return nil, fmt.Errorf("reservation updater required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customer finder required")
	case params.Books == nil:
		return nil, fmt.Errorf("book finder required")
	case params.Audit == nil:
		return nil, fmt.Errorf("audit recorder required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	prefix := params.ReceiptPrefix
	if strings.TrimSpace(prefix) == "" {
		prefix = "VTA"
	}
	return &service{
		repo:          params.Repo,
		requests:      params.Requests,
		reservations:  params.Reservations,
		customers:     params.Customers,
		books:         params.Books,
		audit:         params.Audit,
		tx:            params.Tx,
		logg:          params.Logger,
		metrics:       params.Metrics,
		receiptPrefix: prefix,
		pageSize:      params.PageSize,
	}, nil
}

// order is what both entry points resolve to before anything is written.
type order struct {
	customerID uint
	book       *models.Book
	quantity   int
	method     enums.PaymentMethod
	request    *models.SaleRequest
}

func (s *service) InvoiceRequest(ctx context.Context, sellerID, requestID uint, input InvoiceInput) (*Result, error) {
	method, err := parseMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	var sale *models.Sale
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		req, err := s.requests.FindForUpdate(ctx, tx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró la solicitud de factura.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar solicitud")
		}
		if req.Status != enums.SaleRequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "La solicitud ya fue atendida o cancelada.")
		}
		sale, err = s.record(ctx, tx, sellerID, order{
			customerID: req.CustomerID,
			book:       &req.Book,
			quantity:   req.Quantity,
			method:     method,
			request:    req,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, sale)
}

func (s *service) WalkIn(ctx context.Context, sellerID uint, input WalkInInput) (*Result, error) {
	dni := strings.TrimSpace(input.DNI)
	isbn := strings.TrimSpace(input.ISBN)
	if dni == "" || isbn == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Debes ingresar el DNI del cliente y el ISBN del libro.")
	}
	method, err := parseMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "La cantidad debe ser mayor a cero.")
	}

	customer, err := s.customers.FindActiveByDNI(ctx, nil, dni)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró un cliente activo con ese DNI.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "buscar cliente")
	}
	book, err := s.books.FindByISBN(ctx, nil, isbn)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró un libro con ese ISBN.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "buscar libro")
	}

	var sale *models.Sale
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		sale, err = s.record(ctx, tx, sellerID, order{
			customerID: customer.ID,
			book:       book,
			quantity:   qty,
			method:     method,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, sale)
}

// record applies every effect of a sale inside tx. The stock decrement is the
// first write so a short book leaves nothing behind.
func (s *service) record(ctx context.Context, tx *gorm.DB, sellerID uint, o order) (*models.Sale, error) {
	if o.book.Stock < o.quantity {
		return nil, stock.ErrInsufficient
	}
	if err := stock.Decrement(ctx, tx, o.book.ID, o.quantity); err != nil {
		return nil, err
	}

	code, err := s.receiptCode(ctx, tx)
	if err != nil {
		return nil, err
	}
	line := money.PriceLine(o.book.SalePrice, o.book.TaxPercent, o.quantity)
	sale := &models.Sale{
		ReceiptCode:   code,
		CustomerID:    o.customerID,
		SellerID:      sellerID,
		PaymentMethod: o.method,
		Subtotal:      line.Subtotal,
		Tax:           line.Tax,
		Total:         line.Total,
		Status:        enums.SaleStatusPaid,
		Lines: []models.SaleLine{{
			BookID:    o.book.ID,
			Quantity:  o.quantity,
			UnitPrice: line.UnitPrice,
			UnitTax:   line.UnitTax,
			LineTotal: line.Total,
		}},
	}
	if o.request != nil {
		sale.SaleRequestID = &o.request.ID
	}
	if err := s.repo.Create(ctx, tx, sale); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "El código de recibo ya existe; intenta de nuevo.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar venta")
	}

	if o.request != nil {
		if err := s.requests.SetStatus(ctx, tx, o.request.ID, enums.SaleRequestStatusAttended); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "actualizar solicitud")
		}
		if o.request.ReservationID != nil {
			moved, err := s.reservations.MarkInvoiced(ctx, tx, *o.request.ReservationID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "actualizar reserva")
			}
			if !moved {
				s.logg.Info(s.logg.WithField(ctx, "reservation_id", *o.request.ReservationID), "reservation no longer active; status kept")
			}
		}
	}

	action := fmt.Sprintf("REGISTRÓ VENTA %s: total=%s", sale.ReceiptCode, sale.Total.StringFixed(2))
	if err := s.audit.Record(ctx, tx, &sellerID, action); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar bitácora")
	}
	return sale, nil
}

func (s *service) receiptCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for i := 0; i < receiptAttempts; i++ {
		code, err := id.Receipt(s.receiptPrefix)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generar recibo")
		}
		taken, err := s.repo.ExistsReceipt(ctx, tx, code)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verificar recibo")
		}
		if !taken {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "No se pudo generar un código de recibo único.")
}

func (s *service) finish(ctx context.Context, sale *models.Sale) (*Result, error) {
	s.metrics.SaleRegistered(sale.PaymentMethod.String(), sale.Total)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"sale_id":      sale.ID,
		"receipt_code": sale.ReceiptCode,
		"total":        sale.Total.StringFixed(2),
	}), "sale registered")

	full, err := s.repo.FindByID(ctx, sale.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar venta")
	}
	return &Result{
		Message: fmt.Sprintf("Venta registrada correctamente. Recibo %s por %s.", full.ReceiptCode, money.Format(full.Total)),
		Receipt: FromModel(full),
	}, nil
}

func (s *service) List(ctx context.Context, pageNumber int) (*types.PageEnvelope[ReceiptDTO], error) {
	page := pagination.NewPage(pageNumber, s.pageSize)
	rows, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar ventas")
	}
	items := make([]ReceiptDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return &types.PageEnvelope[ReceiptDTO]{Items: items, Page: page.Clamp(total).Meta(total)}, nil
}

func (s *service) Get(ctx context.Context, saleID uint) (*ReceiptDTO, error) {
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró la venta.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar venta")
	}
	dto := FromModel(sale)
	return &dto, nil
}

func parseMethod(raw string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Selecciona un método de pago válido.")
	}
	return method, nil
}
