package salerequests

import (
	"context"
	"errors"
	"fmt"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"github.com/biblionet/biblionet-backend/pkg/types"
	"gorm.io/gorm"
)

const (
	msgCreated        = "Solicitud de factura enviada. Un bibliotecario la atenderá pronto."
	msgCancelled      = "La solicitud se canceló correctamente."
	msgAlreadyPending = "Ya existe una solicitud de factura pendiente para esta reserva."
	msgNotPending     = "La solicitud ya no está pendiente."
)

type requestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, req *models.SaleRequest) error
	ExistsPendingForReservation(ctx context.Context, tx *gorm.DB, reservationID uint) (bool, error)
	FindOwned(ctx context.Context, tx *gorm.DB, id, customerID uint) (*models.SaleRequest, error)
	SetStatus(ctx context.Context, tx *gorm.DB, id uint, status enums.SaleRequestStatus) error
	ListByCustomer(ctx context.Context, customerID uint) ([]models.SaleRequest, error)
	ListPending(ctx context.Context, page pagination.Page) ([]models.SaleRequest, int64, error)
}

type reservationFinder interface {
	FindOwned(ctx context.Context, tx *gorm.DB, id, customerID uint) (*models.Reservation, error)
}

type bookFinder interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Book, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service handles customer purchase requests.
type Service interface {
	FromReservation(ctx context.Context, customerID, reservationID uint, input CreateInput) (*Result, error)
	FromBook(ctx context.Context, customerID, bookID uint, input CreateInput) (*Result, error)
	Cancel(ctx context.Context, customerID, requestID uint) (*Result, error)
	ListOwn(ctx context.Context, customerID uint) ([]RequestDTO, error)
	ListPending(ctx context.Context, page int) (*types.PageEnvelope[RequestDTO], error)
}

// ServiceParams groups sale request dependencies.
type ServiceParams struct {
	Repo         requestRepository
	Reservations reservationFinder
	Books        bookFinder
	Tx           txRunner
	Logger       *logger.Logger
	PageSize     int
}

type service struct {
	repo         requestRepository
	reservations reservationFinder
	books        bookFinder
	tx           txRunner
	logg         *logger.Logger
	pageSize     int
}

// NewService wires sale requests.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("sale request repository required")
	case params.Reservations == nil:
		return nil, fmt.Errorf("reservation finder required")
	case params.Books == nil:
		return nil, fmt.Errorf("book finder required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:         params.Repo,
		reservations: params.Reservations,
		books:        params.Books,
		tx:           params.Tx,
		logg:         params.Logger,
		pageSize:     params.PageSize,
	}, nil
}

func (s *service) FromReservation(ctx context.Context, customerID, reservationID uint, input CreateInput) (*Result, error) {
	qty, err := quantity(input)
	if err != nil {
		return nil, err
	}
	req := &models.SaleRequest{
		CustomerID:    customerID,
		ReservationID: &reservationID,
		Quantity:      qty,
		Status:        enums.SaleRequestStatusPending,
		Origin:        enums.SaleRequestOriginReservation,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res, err := s.reservations.FindOwned(ctx, tx, reservationID, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró la reserva.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar reserva")
		}
		if res.Status != enums.ReservationStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Esta reserva ya no se encuentra activa.")
		}
		pending, err := s.repo.ExistsPendingForReservation(ctx, tx, res.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verificar solicitudes")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeConflict, msgAlreadyPending)
		}
		req.BookID = res.BookID
		req.Book = res.Book
		if err := s.repo.Create(ctx, tx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar solicitud")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logCreated(ctx, req)
	return &Result{Message: msgCreated, Request: FromModel(req)}, nil
}

func (s *service) FromBook(ctx context.Context, customerID, bookID uint, input CreateInput) (*Result, error) {
	qty, err := quantity(input)
	if err != nil {
		return nil, err
	}
	book, err := s.books.FindByID(ctx, nil, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró el libro.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar libro")
	}
	req := &models.SaleRequest{
		CustomerID: customerID,
		BookID:     book.ID,
		Quantity:   qty,
		Status:     enums.SaleRequestStatusPending,
		Origin:     enums.SaleRequestOriginDetail,
	}
	if err := s.repo.Create(ctx, nil, req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar solicitud")
	}
	req.Book = *book
	s.logCreated(ctx, req)
	return &Result{Message: msgCreated, Request: FromModel(req)}, nil
}

func (s *service) Cancel(ctx context.Context, customerID, requestID uint) (*Result, error) {
	var req *models.SaleRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		req, err = s.repo.FindOwned(ctx, tx, requestID, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró la solicitud.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar solicitud")
		}
		if req.Status != enums.SaleRequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgNotPending)
		}
		if err := s.repo.SetStatus(ctx, tx, req.ID, enums.SaleRequestStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelar solicitud")
		}
		req.Status = enums.SaleRequestStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Message: msgCancelled, Request: FromModel(req)}, nil
}

func (s *service) ListOwn(ctx context.Context, customerID uint) ([]RequestDTO, error) {
	rows, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar solicitudes")
	}
	return toDTOs(rows), nil
}

func (s *service) ListPending(ctx context.Context, pageNumber int) (*types.PageEnvelope[RequestDTO], error) {
	page := pagination.NewPage(pageNumber, s.pageSize)
	rows, total, err := s.repo.ListPending(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar solicitudes pendientes")
	}
	return &types.PageEnvelope[RequestDTO]{Items: toDTOs(rows), Page: page.Clamp(total).Meta(total)}, nil
}

func (s *service) logCreated(ctx context.Context, req *models.SaleRequest) {
	s.logg.Info(s.logg.WithFields(s.logg.WithCustomerID(ctx, req.CustomerID), map[string]any{
		"sale_request_id": req.ID,
		"book_id":         req.BookID,
		"origin":          req.Origin,
	}), "sale request created")
}

func quantity(input CreateInput) (int, error) {
	switch {
	case input.Quantity == 0:
		return 1, nil
	case input.Quantity < 0:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "La cantidad debe ser mayor a cero.")
	default:
		return input.Quantity, nil
	}
}

func toDTOs(rows []models.SaleRequest) []RequestDTO {
	out := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
