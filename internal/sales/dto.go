package sales

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// InvoiceInput settles a pending sale request.
type InvoiceInput struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// WalkInInput describes a counter sale with no prior request.
type WalkInInput struct {
	DNI           string `json:"dni" validate:"required"`
	ISBN          string `json:"isbn" validate:"required"`
	Quantity      int    `json:"quantity" validate:"gte=0"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// LineDTO is one line of a receipt.
type LineDTO struct {
	BookID    uint            `json:"book_id"`
	ISBN      string          `json:"isbn"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitTax   decimal.Decimal `json:"unit_tax"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// ReceiptDTO is the JSON receipt of a sale.
type ReceiptDTO struct {
	ID            uint                `json:"id"`
	ReceiptCode   string              `json:"receipt_code"`
	CustomerID    uint                `json:"customer_id"`
	CustomerName  string              `json:"customer_name"`
	CustomerDNI   string              `json:"customer_dni"`
	SellerID      uint                `json:"seller_id"`
	SellerName    string              `json:"seller_name"`
	SaleRequestID *uint               `json:"sale_request_id,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentLabel  string              `json:"payment_label"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.Decimal     `json:"total"`
	Status        enums.SaleStatus    `json:"status"`
	Lines         []LineDTO           `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
}

// FromModel renders a sale with its preloaded associations.
func FromModel(s *models.Sale) ReceiptDTO {
	dto := ReceiptDTO{
		ID:            s.ID,
		ReceiptCode:   s.ReceiptCode,
		CustomerID:    s.CustomerID,
		CustomerName:  s.Customer.User.FullName(),
		CustomerDNI:   s.Customer.DNI,
		SellerID:      s.SellerID,
		SellerName:    s.Seller.FullName(),
		SaleRequestID: s.SaleRequestID,
		PaymentMethod: s.PaymentMethod,
		PaymentLabel:  s.PaymentMethod.Label(),
		Subtotal:      s.Subtotal,
		Tax:           s.Tax,
		Total:         s.Total,
		Status:        s.Status,
		Lines:         make([]LineDTO, 0, len(s.Lines)),
		CreatedAt:     s.CreatedAt,
	}
	for _, l := range s.Lines {
		dto.Lines = append(dto.Lines, LineDTO{
			BookID:    l.BookID,
			ISBN:      l.Book.ISBN,
			Title:     l.Book.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			UnitTax:   l.UnitTax,
			LineTotal: l.LineTotal,
		})
	}
	return dto
}

// Result is returned by both sale entry points.
type Result struct {
	Message string     `json:"message"`
	Receipt ReceiptDTO `json:"receipt"`
}
