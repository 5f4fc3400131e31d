package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book is a title record; Stock is the single source of truth for available units.
type Book struct {
	ID              uint            `gorm:"column:id;primaryKey"`
	ISBN            string          `gorm:"column:isbn;not null;uniqueIndex"`
	Title           string          `gorm:"column:title;not null"`
	Author          string          `gorm:"column:author;not null"`
	Category        string          `gorm:"column:category;not null;index"`
	Publisher       string          `gorm:"column:publisher;not null;default:''"`
	PublicationYear int             `gorm:"column:publication_year"`
	Stock           int             `gorm:"column:stock;not null;default:0;check:stock >= 0"`
	SalePrice       decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2);not null;default:0"`
	TaxPercent      decimal.Decimal `gorm:"column:tax_percent;type:numeric(5,2);not null;default:0"`
	CoverPath       *string         `gorm:"column:cover_path"`
	SearchKey       string          `gorm:"column:search_key;not null;default:''"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Available reports whether at least one unit is on the shelf.
func (b Book) Available() bool {
	return b.Stock > 0
}
