package catalog

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/biblionet/biblionet-backend/internal/repo"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"github.com/biblionet/biblionet-backend/pkg/textnorm"
	"gorm.io/gorm"
)

// Sort keys accepted by the public catalog.
const (
	SortRecent    = "recientes"
	SortTitleAsc  = "titulo_asc"
	SortTitleDesc = "titulo_desc"
	SortAuthorAsc = "autor_asc"
	SortOldest    = "antiguos"
)

// Availability filters accepted by the public catalog.
const (
	StateAvailable = "disponible"
	StateLent      = "prestado"
)

// BrowseFilter narrows the public catalog listing.
type BrowseFilter struct {
	Query    string
	Category string
	State    string
	Sort     string
}

// Repository handles book persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to book operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a book.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, book *models.Book) error {
	book.SearchKey = searchKey(book)
	return r.Conn(ctx, tx).Create(book).Error
}

// Update writes only the named columns of book plus its search key. Stock
// moves through package stock, so it is written here only when named.
func (r *Repository) Update(ctx context.Context, tx *gorm.DB, book *models.Book, columns ...string) error {
	if len(columns) == 0 {
		return errors.New("update book: no columns")
	}
	book.SearchKey = searchKey(book)
	cols := append(slices.Clone(columns), "search_key")
	return r.Conn(ctx, tx).Model(book).Select(cols).Updates(book).Error
}

// FindByID loads one book.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Book, error) {
	var book models.Book
	if err := r.Conn(ctx, tx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByISBN loads one book by its ISBN.
func (r *Repository) FindByISBN(ctx context.Context, tx *gorm.DB, isbn string) (*models.Book, error) {
	var book models.Book
	if err := r.Conn(ctx, tx).Where("isbn = ?", strings.TrimSpace(isbn)).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByIDs loads the given books in no particular order.
func (r *Repository) FindByIDs(ctx context.Context, ids []uint) ([]models.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var books []models.Book
	err := r.DB(ctx).Where("id IN ?", ids).Find(&books).Error
	return books, err
}

// ExistsByISBN reports whether another book already carries isbn.
func (r *Repository) ExistsByISBN(ctx context.Context, isbn string, exceptID uint) (bool, error) {
	var n int64
	q := r.DB(ctx).Model(&models.Book{}).Where("isbn = ?", isbn)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// Browse pages the public catalog.
func (r *Repository) Browse(ctx context.Context, filter BrowseFilter, page pagination.Page) ([]models.Book, int64, error) {
	q := r.DB(ctx).Model(&models.Book{})
	if folded := textnorm.Fold(filter.Query); folded != "" {
		q = q.Where("search_key LIKE ?", "%"+folded+"%")
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		q = q.Where("lower(category) = ?", strings.ToLower(category))
	}
	switch filter.State {
	case StateAvailable:
		q = q.Where("stock > 0")
	case StateLent:
		q = q.Where("stock <= 0")
	}

	total, page, err := repo.CountPage(q, page)
	if err != nil {
		return nil, 0, err
	}

	for _, order := range browseOrder(filter.Sort) {
		q = q.Order(order)
	}
	var books []models.Book
	err = q.Order("id").Scopes(repo.Paged(page)).Find(&books).Error
	return books, total, err
}

// Inventory pages the staff inventory, matching title, author, ISBN or category.
func (r *Repository) Inventory(ctx context.Context, query string, page pagination.Page) ([]models.Book, int64, error) {
	q := r.DB(ctx).Model(&models.Book{})
	query = strings.ToLower(strings.TrimSpace(query))
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("lower(title) LIKE ? OR lower(author) LIKE ? OR lower(isbn) LIKE ? OR lower(category) LIKE ?", like, like, like, like)
	}

	total, page, err := repo.CountPage(q, page)
	if err != nil {
		return nil, 0, err
	}

	if query != "" {
		q = q.Order("author").Order("title")
	} else {
		q = q.Order("title")
	}
	var books []models.Book
	err = q.Order("id").Scopes(repo.Paged(page)).Find(&books).Error
	return books, total, err
}

// Categories lists the distinct categories in alphabetical order.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.DB(ctx).Model(&models.Book{}).
		Distinct("category").
		Where("category <> ''").
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

// All streams every book for index rebuilds.
func (r *Repository) All(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := r.DB(ctx).Order("id").Find(&books).Error
	return books, err
}

// Count returns the number of titles.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Book{}).Count(&n).Error
	return n, err
}

func browseOrder(sort string) []string {
	switch sort {
	case SortTitleAsc:
		return []string{"title ASC"}
	case SortTitleDesc:
		return []string{"title DESC"}
	case SortAuthorAsc:
		return []string{"author ASC", "title ASC"}
	case SortOldest:
		return []string{"publication_year ASC", "title ASC"}
	default:
		return []string{"created_at DESC", "title ASC"}
	}
}

func searchKey(b *models.Book) string {
	return textnorm.Fold(b.Title + " " + b.Author)
}
