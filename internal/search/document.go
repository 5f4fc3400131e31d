package search

import (
	"strconv"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/textnorm"
)

// Document is the indexed form of a book. Text fields are accent-folded so
// "garcia" finds "García".
type Document struct {
	ID        uint
	Title     string
	Author    string
	Publisher string
	Category  string
	ISBN      string
}

// FromBook builds the index document of a book.
func FromBook(b *models.Book) Document {
	return Document{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Publisher: b.Publisher,
		Category:  b.Category,
		ISBN:      b.ISBN,
	}
}

func (d Document) key() string {
	return strconv.FormatUint(uint64(d.ID), 10)
}

func (d Document) toMap() map[string]any {
	return map[string]any{
		"title":     textnorm.Fold(d.Title),
		"author":    textnorm.Fold(d.Author),
		"publisher": textnorm.Fold(d.Publisher),
		"category":  textnorm.Slugify(d.Category),
		"isbn":      d.ISBN,
	}
}
