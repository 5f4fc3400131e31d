package models

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Sale is the header of a point-of-sale transaction.
type Sale struct {
	ID            uint                `gorm:"column:id;primaryKey"`
	ReceiptCode   string              `gorm:"column:receipt_code;not null;uniqueIndex"`
	CustomerID    uint                `gorm:"column:customer_id;not null;index"`
	Customer      Customer            `gorm:"foreignKey:CustomerID"`
	SellerID      uint                `gorm:"column:seller_id;not null"`
	Seller        User                `gorm:"foreignKey:SellerID"`
	SaleRequestID *uint               `gorm:"column:sale_request_id"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:varchar(16);not null"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax           decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status        enums.SaleStatus    `gorm:"column:status;type:varchar(16);not null;default:pagada"`
	Lines         []SaleLine          `gorm:"foreignKey:SaleID"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// SaleLine is one priced title within a Sale.
type SaleLine struct {
	ID        uint            `gorm:"column:id;primaryKey"`
	SaleID    uint            `gorm:"column:sale_id;not null;index"`
	BookID    uint            `gorm:"column:book_id;not null"`
	Book      Book            `gorm:"foreignKey:BookID"`
	Quantity  int             `gorm:"column:quantity;not null;check:quantity > 0"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	UnitTax   decimal.Decimal `gorm:"column:unit_tax;type:numeric(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}
