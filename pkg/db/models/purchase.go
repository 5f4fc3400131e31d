package models

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Purchase records a restock bought from a Supplier.
type Purchase struct {
	ID            uint                `gorm:"column:id;primaryKey"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	SupplierID    uint                `gorm:"column:supplier_id;not null;index"`
	Supplier      Supplier            `gorm:"foreignKey:SupplierID"`
	BuyerID       uint                `gorm:"column:buyer_id;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:varchar(16);not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Lines         []PurchaseLine      `gorm:"foreignKey:PurchaseID"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// PurchaseLine is one restocked title within a Purchase.
type PurchaseLine struct {
	ID         uint            `gorm:"column:id;primaryKey"`
	PurchaseID uint            `gorm:"column:purchase_id;not null;index"`
	BookID     uint            `gorm:"column:book_id;not null"`
	Book       Book            `gorm:"foreignKey:BookID"`
	Quantity   int             `gorm:"column:quantity;not null;check:quantity > 0"`
	UnitCost   decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
}
