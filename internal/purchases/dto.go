package purchases

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// LineInput is one row of the purchase form. A row with every field empty is
// skipped.
type LineInput struct {
	BookID   uint            `json:"book_id"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

func (l LineInput) blank() bool {
	return l.BookID == 0 && l.Quantity == 0 && l.UnitCost.IsZero()
}

func (l LineInput) partial() bool {
	return l.BookID == 0 || l.Quantity == 0 || l.UnitCost.IsZero()
}

// PurchaseInput registers a restock from a supplier.
type PurchaseInput struct {
	SupplierID    uint        `json:"supplier_id" validate:"required"`
	PaymentMethod string      `json:"payment_method" validate:"required"`
	Lines         []LineInput `json:"lines" validate:"required"`
}

type LineDTO struct {
	BookID   uint            `json:"book_id"`
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type PurchaseDTO struct {
	ID            uint                `json:"id"`
	InvoiceNumber string              `json:"invoice_number"`
	SupplierID    uint                `json:"supplier_id"`
	SupplierName  string              `json:"supplier_name"`
	BuyerID       uint                `json:"buyer_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	Lines         []LineDTO           `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
}

func FromModel(p *models.Purchase) PurchaseDTO {
	dto := PurchaseDTO{
		ID:            p.ID,
		InvoiceNumber: p.InvoiceNumber,
		SupplierID:    p.SupplierID,
		SupplierName:  p.Supplier.Name,
		BuyerID:       p.BuyerID,
		PaymentMethod: p.PaymentMethod,
		Total:         p.Total,
		Lines:         make([]LineDTO, 0, len(p.Lines)),
		CreatedAt:     p.CreatedAt,
	}
	for _, l := range p.Lines {
		dto.Lines = append(dto.Lines, LineDTO{
			BookID:   l.BookID,
			Title:    l.Book.Title,
			Quantity: l.Quantity,
			UnitCost: l.UnitCost,
			Subtotal: l.Subtotal,
		})
	}
	return dto
}

// Result pairs a purchase with its confirmation message.
type Result struct {
	Message  string      `json:"message"`
	Purchase PurchaseDTO `json:"purchase"`
}
