// Package purchases records restocks bought from suppliers.
package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/biblionet/biblionet-backend/internal/stock"
	"github.com/biblionet/biblionet-backend/pkg/db"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/money"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"github.com/biblionet/biblionet-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const invoiceFormat = "FC-%06d"

type purchaseRepository interface {
	NextID(ctx context.Context, tx *gorm.DB) (uint, error)
	Create(ctx context.Context, tx *gorm.DB, p *models.Purchase) error
	List(ctx context.Context, page pagination.Page) ([]models.Purchase, int64, error)
}

type supplierFinder interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Supplier, error)
}

type bookLoader interface {
	FindByIDs(ctx context.Context, ids []uint) ([]models.Book, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, actorID *uint, action string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	Create(ctx context.Context, buyerID uint, input PurchaseInput) (*Result, error)
	List(ctx context.Context, page int) (*types.PageEnvelope[PurchaseDTO], error)
}

type ServiceParams struct {
	Repo      purchaseRepository
	Suppliers supplierFinder
	Books     bookLoader
	Audit     auditRecorder
	Tx        txRunner
	Logger    *logger.Logger
	PageSize  int
}

type service struct {
	repo      purchaseRepository
	suppliers supplierFinder
	books     bookLoader
	audit     auditRecorder
	tx        txRunner
	logg      *logger.Logger
	pageSize  int
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("purchase repository required")
	case params.Suppliers == nil:
		return nil, fmt.Errorf("supplier finder required")
	case params.Books == nil:
		return nil, fmt.Errorf("book loader required")
	case params.Audit == nil:
		return nil, fmt.Errorf("audit recorder required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		suppliers: params.Suppliers,
		books:     params.Books,
		audit:     params.Audit,
		tx:        params.Tx,
		logg:      params.Logger,
		pageSize:  params.PageSize,
	}, nil
}

func (s *service) Create(ctx context.Context, buyerID uint, input PurchaseInput) (*Result, error) {
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Selecciona un método de pago válido.")
	}
	lines, err := s.buildLines(ctx, input.Lines)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}

	purchase := &models.Purchase{
		SupplierID:    input.SupplierID,
		BuyerID:       buyerID,
		PaymentMethod: method,
		Total:         money.Round2(total),
		Lines:         lines,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		supplier, err := s.suppliers.FindByID(ctx, tx, input.SupplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró el proveedor.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar proveedor")
		}
		if supplier.Status != enums.RecordStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "El proveedor está inactivo.")
		}
		purchase.Supplier = *supplier

		next, err := s.repo.NextID(ctx, tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calcular número de factura")
		}
		purchase.InvoiceNumber = fmt.Sprintf(invoiceFormat, next)
		if err := s.repo.Create(ctx, tx, purchase); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "El número de factura ya existe; intenta de nuevo.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar compra")
		}
		for _, l := range purchase.Lines {
			if err := stock.Increment(ctx, tx, l.BookID, l.Quantity); err != nil {
				return err
			}
		}
		action := fmt.Sprintf("REGISTRÓ COMPRA %s: proveedor=%s, total=%s", purchase.InvoiceNumber, supplier.Name, purchase.Total.StringFixed(2))
		return s.audit.Record(ctx, tx, &buyerID, action)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"purchase_id": purchase.ID,
		"invoice":     purchase.InvoiceNumber,
		"lines":       len(purchase.Lines),
	}), "purchase registered")
	return &Result{
		Message:  fmt.Sprintf("Compra %s registrada por %s.", purchase.InvoiceNumber, money.Format(purchase.Total)),
		Purchase: FromModel(purchase),
	}, nil
}

// buildLines drops blank rows and rejects incomplete or non-positive ones,
// reporting the 1-based row number.
func (s *service) buildLines(ctx context.Context, rows []LineInput) ([]models.PurchaseLine, error) {
	type numbered struct {
		LineInput
		index int
	}
	var (
		kept    []numbered
		bookIDs []uint
	)
	for i, row := range rows {
		if row.blank() {
			continue
		}
		if row.partial() {
			return nil, lineError(i, "La línea %d está incompleta: indica libro, cantidad y costo unitario.")
		}
		if row.Quantity < 0 || !row.UnitCost.IsPositive() {
			return nil, lineError(i, "La línea %d debe tener cantidad y costo unitario positivos.")
		}
		kept = append(kept, numbered{LineInput: row, index: i})
		bookIDs = append(bookIDs, row.BookID)
	}
	if len(kept) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Agrega al menos una línea a la compra.")
	}

	books, err := s.books.FindByIDs(ctx, bookIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar libros")
	}
	byID := make(map[uint]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	lines := make([]models.PurchaseLine, 0, len(kept))
	for _, row := range kept {
		book, ok := byID[row.BookID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "No se encontró el libro de la línea %d.", row.index+1).
				WithDetails(map[string]any{"line": row.index + 1})
		}
		cost := money.Round2(row.UnitCost)
		lines = append(lines, models.PurchaseLine{
			BookID:   book.ID,
			Book:     book,
			Quantity: row.Quantity,
			UnitCost: cost,
			Subtotal: money.Round2(cost.Mul(decimal.NewFromInt(int64(row.Quantity)))),
		})
	}
	return lines, nil
}

func lineError(index int, format string) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, format, index+1).
		WithDetails(map[string]any{"line": index + 1})
}

func (s *service) List(ctx context.Context, pageNumber int) (*types.PageEnvelope[PurchaseDTO], error) {
	page := pagination.NewPage(pageNumber, s.pageSize)
	rows, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar compras")
	}
	items := make([]PurchaseDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return &types.PageEnvelope[PurchaseDTO]{Items: items, Page: page.Clamp(total).Meta(total)}, nil
}
