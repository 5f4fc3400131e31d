package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/biblionet/biblionet-backend/internal/mora"
	"github.com/biblionet/biblionet-backend/pkg/db"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	msgCreated       = "Reserva realizada correctamente."
	msgCancelled     = "La reserva se canceló correctamente."
	msgNotActive     = "Esta reserva ya no se encuentra activa."
	msgDuplicateHold = "Ya tienes una reserva activa para este libro."
)

var errNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró la reserva.")

type reservationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, res *models.Reservation) error
	ExistsActive(ctx context.Context, tx *gorm.DB, customerID, bookID uint, now time.Time) (bool, error)
	ExpireLapsed(ctx context.Context, tx *gorm.DB, customerID, bookID uint, now time.Time) error
	FindOwned(ctx context.Context, tx *gorm.DB, id, customerID uint) (*models.Reservation, error)
	SetStatus(ctx context.Context, tx *gorm.DB, id uint, status enums.ReservationStatus) error
	ListActive(ctx context.Context, customerID uint, now time.Time) ([]models.Reservation, error)
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
}

type bookFinder interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Book, error)
}

type blockRefresher interface {
	Refresh(ctx context.Context, customerID uint) (mora.Status, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages customer reservations.
type Service interface {
	Create(ctx context.Context, customerID, bookID uint) (*Result, error)
	Cancel(ctx context.Context, customerID, reservationID uint) (*Result, error)
	ListOwn(ctx context.Context, customerID uint) ([]ReservationDTO, error)
	ExpireStale(ctx context.Context) (int64, error)
}

// ServiceParams groups reservation dependencies.
type ServiceParams struct {
	Repo   reservationRepository
	Books  bookFinder
	Mora   blockRefresher
	Tx     txRunner
	Logger *logger.Logger
	TTL    time.Duration
	Now    func() time.Time
}

type service struct {
	repo  reservationRepository
	books bookFinder
	mora  blockRefresher
	tx    txRunner
	logg  *logger.Logger
	ttl   time.Duration
	now   func() time.Time
}

// NewService wires reservations.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("reservation repository required")
	case params.Books == nil:
		return nil, fmt.Errorf("book finder required")
	case params.Mora == nil:
		return nil, fmt.Errorf("block engine required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:  params.Repo,
		books: params.Books,
		mora:  params.Mora,
		tx:    params.Tx,
		logg:  params.Logger,
		ttl:   ttl,
		now:   now,
	}, nil
}

func (s *service) Create(ctx context.Context, customerID, bookID uint) (*Result, error) {
	status, err := s.mora.Refresh(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := status.Err(); err != nil {
		return nil, err
	}

	book, err := s.books.FindByID(ctx, nil, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró el libro.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar libro")
	}

	now := s.now().UTC()
	res := &models.Reservation{
		CustomerID: customerID,
		BookID:     book.ID,
		ReservedAt: now,
		ExpiresAt:  now.Add(s.ttl),
		Status:     enums.ReservationStatusActive,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.ExpireLapsed(ctx, tx, customerID, book.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "vencer reservas")
		}
		exists, err := s.repo.ExistsActive(ctx, tx, customerID, book.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verificar reservas")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, msgDuplicateHold)
		}
		if err := s.repo.Create(ctx, tx, res); err != nil {
			if db.IsUniqueViolation(err, "ux_reservations_active_customer_book") {
				return pkgerrors.New(pkgerrors.CodeConflict, msgDuplicateHold)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar reserva")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Book = *book
	s.logg.Info(s.logg.WithFields(s.logg.WithCustomerID(ctx, customerID), map[string]any{
		"reservation_id": res.ID,
		"book_id":        book.ID,
	}), "reservation created")
	return &Result{Message: msgCreated, Reservation: FromModel(res)}, nil
}

func (s *service) Cancel(ctx context.Context, customerID, reservationID uint) (*Result, error) {
	var (
		res     *models.Reservation
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.repo.FindOwned(ctx, tx, reservationID, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar reserva")
		}
		if res.Status != enums.ReservationStatusActive {
			return nil
		}
		if err := s.repo.SetStatus(ctx, tx, res.ID, enums.ReservationStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelar reserva")
		}
		res.Status = enums.ReservationStatusCancelled
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return &Result{Message: msgNotActive, Reservation: FromModel(res)}, nil
	}
	return &Result{Message: msgCancelled, Reservation: FromModel(res)}, nil
}

func (s *service) ListOwn(ctx context.Context, customerID uint) ([]ReservationDTO, error) {
	rows, err := s.repo.ListActive(ctx, customerID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar reservas")
	}
	out := make([]ReservationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireBefore(ctx, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expirar reservas")
	}
	if n > 0 {
		s.logg.Info(s.logg.WithField(ctx, "expired", n), "stale reservations expired")
	}
	return n, nil
}
