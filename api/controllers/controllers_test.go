package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/biblionet/biblionet-backend/api/middleware"
	"github.com/biblionet/biblionet-backend/internal/catalog"
	"github.com/biblionet/biblionet-backend/internal/reservations"
	"github.com/biblionet/biblionet-backend/internal/sales"
	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/types"
)

type stubCatalog struct {
	catalog.Service
	detail func(ctx context.Context, id uint) (*catalog.BookDTO, error)
	upload func(ctx context.Context, actorID, id uint, r io.Reader) (*catalog.BookDTO, error)
	browse func(ctx context.Context, params catalog.BrowseParams) (*catalog.BrowseResult, error)
}

func (s stubCatalog) Detail(ctx context.Context, id uint) (*catalog.BookDTO, error) {
	return s.detail(ctx, id)
}

func (s stubCatalog) UploadCover(ctx context.Context, actorID, id uint, r io.Reader) (*catalog.BookDTO, error) {
	return s.upload(ctx, actorID, id, r)
}

func (s stubCatalog) Browse(ctx context.Context, params catalog.BrowseParams) (*catalog.BrowseResult, error) {
	return s.browse(ctx, params)
}

type stubReservations struct {
	reservations.Service
	created struct {
		customerID uint
		bookID     uint
	}
}

func (s *stubReservations) Create(ctx context.Context, customerID, bookID uint) (*reservations.Result, error) {
	s.created.customerID = customerID
	s.created.bookID = bookID
	return &reservations.Result{Message: "Reserva realizada correctamente."}, nil
}

type stubSales struct {
	sales.Service
	sellerID uint
	input    sales.WalkInInput
	err      error
}

func (s *stubSales) WalkIn(ctx context.Context, sellerID uint, input sales.WalkInInput) (*sales.Result, error) {
	s.sellerID = sellerID
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &sales.Result{Message: "Venta registrada correctamente."}, nil
}

type stubBlocker struct {
	reason  string
	actorID uint
}

func (s *stubBlocker) BlockManual(ctx context.Context, actorID, customerID uint, reason string) (*models.Customer, error) {
	s.actorID = actorID
	s.reason = reason
	return &models.Customer{ID: customerID, DNI: "0801199900001"}, nil
}

func (s *stubBlocker) Unblock(ctx context.Context, actorID, customerID uint) (*models.Customer, error) {
	s.actorID = actorID
	return &models.Customer{ID: customerID, DNI: "0801199900001"}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func withRoute(req *http.Request, params map[string]string) *http.Request {
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func asCustomer(req *http.Request, userID, customerID uint) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), userID, enums.RoleCustomer, &customerID))
}

func asStaff(req *http.Request, userID uint, role enums.Role) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), userID, role, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestCatalogDetailNotFound(t *testing.T) {
	svc := stubCatalog{detail: func(ctx context.Context, id uint) (*catalog.BookDTO, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Libro no encontrado.")
	}}
	req := withRoute(httptest.NewRequest(http.MethodGet, "/catalogo/99", nil), map[string]string{"id": "99"})
	rec := httptest.NewRecorder()
	CatalogDetail(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Libro no encontrado.", decodeError(t, rec).Message)
}

func TestCatalogBrowsePassesFilters(t *testing.T) {
	var got catalog.BrowseParams
	svc := stubCatalog{browse: func(ctx context.Context, params catalog.BrowseParams) (*catalog.BrowseResult, error) {
		got = params
		return &catalog.BrowseResult{}, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/catalogo?q=%20garcia%20&categoria=novela&estado=disponible&orden=titulo_asc&page=2", nil)
	rec := httptest.NewRecorder()
	CatalogBrowse(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, catalog.BrowseParams{Query: "garcia", Category: "novela", State: "disponible", Sort: "titulo_asc", Page: 2}, got)
}

func TestReservationCreateUsesTokenCustomer(t *testing.T) {
	svc := &stubReservations{}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/catalogo/5/reservar", nil), map[string]string{"id": "5"})
	req = asCustomer(req, 3, 11)
	rec := httptest.NewRecorder()
	ReservationCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, uint(11), svc.created.customerID)
	require.Equal(t, uint(5), svc.created.bookID)
}

func TestSaleWalkInPassesSeller(t *testing.T) {
	svc := &stubSales{}
	body := `{"dni":"0801199900001","isbn":"9780000000001","quantity":2,"payment_method":"efectivo"}`
	req := asStaff(httptest.NewRequest(http.MethodPost, "/seguridad/ventas/realizar", bytes.NewBufferString(body)), 4, enums.RoleLibrarian)
	rec := httptest.NewRecorder()
	SaleWalkIn(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, uint(4), svc.sellerID)
	require.Equal(t, 2, svc.input.Quantity)
	require.Equal(t, "efectivo", svc.input.PaymentMethod)
}

func TestSaleWalkInSurfacesStockConflict(t *testing.T) {
	svc := &stubSales{err: pkgerrors.New(pkgerrors.CodeStateConflict, "No hay stock disponible para este libro.")}
	req := asStaff(httptest.NewRequest(http.MethodPost, "/seguridad/ventas/realizar", bytes.NewBufferString(`{"dni":"1","isbn":"2","quantity":1,"payment_method":"tarjeta"}`)), 4, enums.RoleLibrarian)
	rec := httptest.NewRecorder()
	SaleWalkIn(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, string(pkgerrors.CodeStateConflict), decodeError(t, rec).Code)
}

func TestCustomerBlockGetAndPost(t *testing.T) {
	blocker := &stubBlocker{}

	get := withRoute(httptest.NewRequest(http.MethodGet, "/seguridad/clientes/8/bloquear", nil), map[string]string{"id": "8"})
	get = asStaff(get, 2, enums.RoleLibrarian)
	rec := httptest.NewRecorder()
	CustomerBlock(blocker, nil).ServeHTTP(rec, get)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, blocker.reason)
	require.Equal(t, uint(2), blocker.actorID)

	post := withRoute(httptest.NewRequest(http.MethodPost, "/seguridad/clientes/8/bloquear", bytes.NewBufferString(`{"reason":"Daño a un libro"}`)), map[string]string{"id": "8"})
	post = asStaff(post, 2, enums.RoleLibrarian)
	rec = httptest.NewRecorder()
	CustomerBlock(blocker, nil).ServeHTTP(rec, post)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Daño a un libro", blocker.reason)
}

func TestInventoryUploadCoverRequiresFile(t *testing.T) {
	svc := stubCatalog{upload: func(ctx context.Context, actorID, id uint, r io.Reader) (*catalog.BookDTO, error) {
		t.Fatal("service must not be called without a file")
		return nil, nil
	}}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "sin archivo"))
	require.NoError(t, mw.Close())

	req := withRoute(httptest.NewRequest(http.MethodPost, "/seguridad/inventario/3/portada", &buf), map[string]string{"id": "3"})
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	InventoryUploadCover(svc, 1<<20, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryUploadCoverStreamsFile(t *testing.T) {
	var received []byte
	svc := stubCatalog{upload: func(ctx context.Context, actorID, id uint, r io.Reader) (*catalog.BookDTO, error) {
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		received = data
		return &catalog.BookDTO{ID: id}, nil
	}}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(coverFormField, "portada.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := withRoute(httptest.NewRequest(http.MethodPost, "/seguridad/inventario/3/portada", &buf), map[string]string{"id": "3"})
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = asStaff(req, 2, enums.RoleLibrarian)
	rec := httptest.NewRecorder()
	InventoryUploadCover(svc, 1<<20, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []byte("\x89PNG\r\n\x1a\nfake"), received)
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get(envHeader))

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{err: errors.New("dial tcp: refused")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
