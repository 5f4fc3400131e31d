package pagination

import "github.com/biblionet/biblionet-backend/pkg/types"

// Page is a 1-based page request with a fixed size.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps number to at least 1. Out-of-range numbers are clamped to the
// last page once the total is known, see Meta.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultLimit
	}
	return Page{Number: number, Size: size}
}

// Offset is the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Clamp moves the page back to the last page when it overshoots total.
func (p Page) Clamp(total int64) Page {
	last := lastPage(total, p.Size)
	if p.Number > last {
		p.Number = last
	}
	return p
}

// Meta builds the response metadata for the page.
func (p Page) Meta(total int64) types.PageMeta {
	last := lastPage(total, p.Size)
	return types.PageMeta{
		Page:       p.Number,
		PageSize:   p.Size,
		Total:      total,
		TotalPages: last,
		HasNext:    p.Number < last,
		HasPrev:    p.Number > 1,
	}
}

func lastPage(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	pages := int((total + int64(size) - 1) / int64(size))
	if pages < 1 {
		return 1
	}
	return pages
}
