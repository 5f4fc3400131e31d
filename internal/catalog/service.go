package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/biblionet/biblionet-backend/internal/search"
	"github.com/biblionet/biblionet-backend/pkg/db"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/money"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"github.com/biblionet/biblionet-backend/pkg/textnorm"
	"github.com/biblionet/biblionet-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var errBookNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró el libro.")

// editableColumns are written by an inventory edit. Stock joins them only
// when the form sets it.
var editableColumns = []string{
	"isbn", "title", "author", "category", "publisher",
	"publication_year", "sale_price", "tax_percent",
}

type bookRepository interface {
	Create(ctx context.Context, tx *gorm.DB, book *models.Book) error
	Update(ctx context.Context, tx *gorm.DB, book *models.Book, columns ...string) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Book, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Book, error)
	ExistsByISBN(ctx context.Context, isbn string, exceptID uint) (bool, error)
	Browse(ctx context.Context, filter BrowseFilter, page pagination.Page) ([]models.Book, int64, error)
	Inventory(ctx context.Context, query string, page pagination.Page) ([]models.Book, int64, error)
	Categories(ctx context.Context) ([]string, error)
	All(ctx context.Context) ([]models.Book, error)
}

type bookIndex interface {
	Upsert(doc search.Document) error
	Rebuild(docs []search.Document) error
	Search(ctx context.Context, text string, limit, offset int) (*search.Result, error)
}

type coverStore interface {
	Save(bookID uint, r io.Reader) (string, error)
	Remove(rel string) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, actorID *uint, action string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the public catalog and the staff inventory.
type Service interface {
	Browse(ctx context.Context, params BrowseParams) (*BrowseResult, error)
	Detail(ctx context.Context, id uint) (*BookDTO, error)
	Search(ctx context.Context, text string, page int) (*types.PageEnvelope[BookDTO], error)
	Inventory(ctx context.Context, query string, page int) (*types.PageEnvelope[BookDTO], error)
	CreateBook(ctx context.Context, actorID uint, input BookInput) (*BookDTO, error)
	UpdateBook(ctx context.Context, actorID uint, id uint, input BookInput) (*BookDTO, error)
	UploadCover(ctx context.Context, actorID uint, id uint, r io.Reader) (*BookDTO, error)
	RebuildIndex(ctx context.Context) (int, error)
}

// ServiceParams groups catalog dependencies.
type ServiceParams struct {
	Repo              bookRepository
	Index             bookIndex
	Covers            coverStore
	Audit             auditRecorder
	Tx                txRunner
	Logger            *logger.Logger
	PageSize          int
	InventoryPageSize int
}

type service struct {
	repo              bookRepository
	index             bookIndex
	covers            coverStore
	audit             auditRecorder
	tx                txRunner
	logg              *logger.Logger
	pageSize          int
	inventoryPageSize int
}

// NewService wires the catalog.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("book repository required")
	}
	if params.Index == nil {
		return nil, fmt.Errorf("search index required")
	}
	if params.Covers == nil {
		return nil, fmt.Errorf("cover store required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = 9
	}
	inventoryPageSize := params.InventoryPageSize
	if inventoryPageSize <= 0 {
		inventoryPageSize = 5
	}
	return &service{
		repo:              params.Repo,
		index:             params.Index,
		covers:            params.Covers,
		audit:             params.Audit,
		tx:                params.Tx,
		logg:              params.Logger,
		pageSize:          pageSize,
		inventoryPageSize: inventoryPageSize,
	}, nil
}

func (s *service) Browse(ctx context.Context, params BrowseParams) (*BrowseResult, error) {
	filter := BrowseFilter{
		Query:    strings.TrimSpace(params.Query),
		Category: strings.TrimSpace(params.Category),
		State:    strings.TrimSpace(params.State),
		Sort:     strings.TrimSpace(params.Sort),
	}
	if filter.Sort == "" {
		filter.Sort = SortRecent
	}

	page := pagination.NewPage(params.Page, s.pageSize)
	books, total, err := s.repo.Browse(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar catálogo")
	}
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar categorías")
	}

	return &BrowseResult{
		Items:      toDTOs(books),
		Page:       page.Clamp(total).Meta(total),
		Categories: categories,
		Filters: BrowseParams{
			Query:    filter.Query,
			Category: filter.Category,
			State:    filter.State,
			Sort:     filter.Sort,
		},
	}, nil
}

func (s *service) Detail(ctx context.Context, id uint) (*BookDTO, error) {
	book, err := s.load(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(book)
	return &dto, nil
}

func (s *service) Search(ctx context.Context, text string, pageNumber int) (*types.PageEnvelope[BookDTO], error) {
	page := pagination.NewPage(pageNumber, s.pageSize)
	if strings.TrimSpace(text) == "" {
		return &types.PageEnvelope[BookDTO]{Items: []BookDTO{}, Page: page.Meta(0)}, nil
	}

	res, err := s.index.Search(ctx, text, page.Size, page.Offset())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "buscar en el catálogo")
	}
	books, err := s.repo.FindByIDs(ctx, res.IDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar resultados")
	}

	byID := make(map[uint]*models.Book, len(books))
	for i := range books {
		byID[books[i].ID] = &books[i]
	}
	items := make([]BookDTO, 0, len(res.IDs))
	for _, id := range res.IDs {
		if book, ok := byID[id]; ok {
			items = append(items, FromModel(book))
		}
	}
	return &types.PageEnvelope[BookDTO]{Items: items, Page: page.Meta(int64(res.Total))}, nil
}

func (s *service) Inventory(ctx context.Context, query string, pageNumber int) (*types.PageEnvelope[BookDTO], error) {
	page := pagination.NewPage(pageNumber, s.inventoryPageSize)
	books, total, err := s.repo.Inventory(ctx, query, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar inventario")
	}
	return &types.PageEnvelope[BookDTO]{Items: toDTOs(books), Page: page.Clamp(total).Meta(total)}, nil
}

func (s *service) CreateBook(ctx context.Context, actorID uint, input BookInput) (*BookDTO, error) {
	book := &models.Book{}
	if err := applyInput(book, input, true); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueISBN(ctx, book.ISBN, 0); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, book); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &actorID, fmt.Sprintf("REGISTRÓ EL LIBRO: '%s'", book.Title))
	})
	if err != nil {
		return nil, s.writeError(err, "registrar libro")
	}

	s.reindex(ctx, book)
	dto := FromModel(book)
	return &dto, nil
}

func (s *service) UpdateBook(ctx context.Context, actorID uint, id uint, input BookInput) (*BookDTO, error) {
	book, err := s.load(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := applyInput(book, input, false); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueISBN(ctx, book.ISBN, book.ID); err != nil {
		return nil, err
	}

	columns := slices.Clone(editableColumns)
	if input.Stock != nil {
		columns = append(columns, "stock")
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, book, columns...); err != nil {
			return err
		}
		if err := s.reload(ctx, tx, book); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &actorID, fmt.Sprintf("EDITO EL LIBRO: '%s'", book.Title))
	})
	if err != nil {
		return nil, s.writeError(err, "actualizar libro")
	}

	s.reindex(ctx, book)
	dto := FromModel(book)
	return &dto, nil
}

func (s *service) UploadCover(ctx context.Context, actorID uint, id uint, r io.Reader) (*BookDTO, error) {
	book, err := s.load(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	rel, err := s.covers.Save(book.ID, r)
	if err != nil {
		return nil, err
	}

	var previous string
	if book.CoverPath != nil {
		previous = *book.CoverPath
	}
	book.CoverPath = &rel
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, book, "cover_path"); err != nil {
			return err
		}
		if err := s.reload(ctx, tx, book); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &actorID, fmt.Sprintf("ACTUALIZÓ PORTADA DEL LIBRO: '%s'", book.Title))
	})
	if err != nil {
		_ = s.covers.Remove(rel)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "guardar portada")
	}
	if previous != "" && previous != rel {
		if err := s.covers.Remove(previous); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cover_path", previous), "failed to remove previous cover")
		}
	}

	dto := FromModel(book)
	return &dto, nil
}

func (s *service) RebuildIndex(ctx context.Context) (int, error) {
	books, err := s.repo.All(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar libros")
	}
	docs := make([]search.Document, 0, len(books))
	for i := range books {
		docs = append(docs, search.FromBook(&books[i]))
	}
	if err := s.index.Rebuild(docs); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reconstruir índice")
	}
	s.logg.Info(s.logg.WithField(ctx, "documents", len(docs)), "search index rebuilt")
	return len(docs), nil
}

// reload refreshes book from tx so the response carries the committed stock.
func (s *service) reload(ctx context.Context, tx *gorm.DB, book *models.Book) error {
	fresh, err := s.repo.FindByID(ctx, tx, book.ID)
	if err != nil {
		return err
	}
	*book = *fresh
	return nil
}

func (s *service) load(ctx context.Context, tx *gorm.DB, id uint) (*models.Book, error) {
	book, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBookNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar libro")
	}
	return book, nil
}

func (s *service) ensureUniqueISBN(ctx context.Context, isbn string, exceptID uint) error {
	exists, err := s.repo.ExistsByISBN(ctx, isbn, exceptID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verificar ISBN")
	}
	if exists {
		return duplicateISBN(isbn)
	}
	return nil
}

func (s *service) writeError(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "Ya existe un libro con ese ISBN.")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

// reindex keeps the search document in step with the row. Failures are
// logged only; RebuildIndex repairs drift.
func (s *service) reindex(ctx context.Context, book *models.Book) {
	if err := s.index.Upsert(search.FromBook(book)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "book_id", book.ID), "failed to index book: "+err.Error())
	}
}

func applyInput(book *models.Book, input BookInput, creating bool) error {
	isbn := strings.TrimSpace(input.ISBN)
	title := strings.TrimSpace(input.Title)
	author := strings.TrimSpace(input.Author)
	category := strings.TrimSpace(input.Category)
	if isbn == "" || title == "" || author == "" || category == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "ISBN, título, autor y categoría son obligatorios.").WithDetails(input)
	}
	if input.PublicationYear < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "El año de publicación no es válido.")
	}

	book.ISBN = isbn
	book.Title = title
	book.Author = author
	book.Category = textnorm.Title(category)
	book.Publisher = strings.TrimSpace(input.Publisher)
	book.PublicationYear = input.PublicationYear

	switch {
	case input.Stock != nil && *input.Stock < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "El stock no puede ser negativo.")
	case input.Stock != nil:
		book.Stock = *input.Stock
	case creating:
		book.Stock = 0
	}

	if input.SalePrice != nil {
		if input.SalePrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "El precio de venta no puede ser negativo.")
		}
		book.SalePrice = money.Round2(*input.SalePrice)
	} else if creating {
		book.SalePrice = decimal.Zero
	}
	if input.TaxPercent != nil {
		if input.TaxPercent.IsNegative() || input.TaxPercent.GreaterThan(decimal.NewFromInt(100)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "El impuesto debe estar entre 0 y 100.")
		}
		book.TaxPercent = money.Round2(*input.TaxPercent)
	} else if creating {
		book.TaxPercent = decimal.Zero
	}
	return nil
}

func duplicateISBN(isbn string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "Ya existe un libro con ese ISBN.").
		WithDetails(map[string]string{"isbn": isbn})
}

func toDTOs(books []models.Book) []BookDTO {
	out := make([]BookDTO, 0, len(books))
	for i := range books {
		out = append(out, FromModel(&books[i]))
	}
	return out
}
