package catalog

import (
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// BookDTO is the API view of a book.
type BookDTO struct {
	ID              uint            `json:"id"`
	ISBN            string          `json:"isbn"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Category        string          `json:"category"`
	Publisher       string          `json:"publisher"`
	PublicationYear int             `json:"publication_year"`
	Stock           int             `json:"stock"`
	Available       bool            `json:"available"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
	CoverPath       *string         `json:"cover_path,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// FromModel renders a book.
func FromModel(b *models.Book) BookDTO {
	return BookDTO{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Category:        b.Category,
		Publisher:       b.Publisher,
		PublicationYear: b.PublicationYear,
		Stock:           b.Stock,
		Available:       b.Available(),
		SalePrice:       b.SalePrice,
		TaxPercent:      b.TaxPercent,
		CoverPath:       b.CoverPath,
		CreatedAt:       b.CreatedAt,
	}
}

// BookInput carries the inventory form. Stock is optional on edit.
type BookInput struct {
	ISBN            string           `json:"isbn" validate:"required,max=32"`
	Title           string           `json:"title" validate:"required,max=255"`
	Author          string           `json:"author" validate:"required,max=255"`
	Category        string           `json:"category" validate:"required,max=100"`
	Publisher       string           `json:"publisher" validate:"max=255"`
	PublicationYear int              `json:"publication_year" validate:"omitempty,gte=0,lte=9999"`
	Stock           *int             `json:"stock" validate:"omitempty,gte=0"`
	SalePrice       *decimal.Decimal `json:"sale_price"`
	TaxPercent      *decimal.Decimal `json:"tax_percent"`
}

// BrowseParams is the public catalog query string.
type BrowseParams struct {
	Query    string `json:"q"`
	Category string `json:"categoria"`
	State    string `json:"estado"`
	Sort     string `json:"orden"`
	Page     int    `json:"-"`
}

// BrowseResult is one page of the public catalog plus its facets.
type BrowseResult struct {
	Items      []BookDTO      `json:"items"`
	Page       types.PageMeta `json:"page"`
	Categories []string       `json:"categories"`
	Filters    BrowseParams   `json:"filters"`
}
