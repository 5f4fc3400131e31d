// Package suppliers keeps the directory of book suppliers used by purchases.
package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biblionet/biblionet-backend/pkg/db"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/textnorm"
	"gorm.io/gorm"
)

var errDuplicateName = pkgerrors.New(pkgerrors.CodeConflict, "Ya existe un proveedor con ese nombre.")

type supplierRepository interface {
	Create(ctx context.Context, tx *gorm.DB, s *models.Supplier) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Supplier, error)
	ExistsByName(ctx context.Context, tx *gorm.DB, name string) (bool, error)
	SetStatus(ctx context.Context, tx *gorm.DB, id uint, status enums.RecordStatus) error
	List(ctx context.Context, activeOnly bool) ([]models.Supplier, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, actorID *uint, action string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	Create(ctx context.Context, actorID uint, input SupplierInput) (*SupplierDTO, error)
	List(ctx context.Context, activeOnly bool) ([]SupplierDTO, error)
	SetStatus(ctx context.Context, actorID, id uint, input StatusInput) (*SupplierDTO, error)
}

type service struct {
	repo  supplierRepository
	audit auditRecorder
	tx    txRunner
	logg  *logger.Logger
}

// NewService wires the supplier directory.
func NewService(repo supplierRepository, audit auditRecorder, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil || audit == nil || tx == nil || logg == nil {
		return nil, fmt.Errorf("supplier service dependencies required")
	}
	return &service{repo: repo, audit: audit, tx: tx, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actorID uint, input SupplierInput) (*SupplierDTO, error) {
	supplier := &models.Supplier{
		Name:    textnorm.Title(input.Name),
		Contact: strings.TrimSpace(input.Contact),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:   strings.TrimSpace(input.Phone),
		Status:  enums.RecordStatusActive,
	}
	if supplier.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "El nombre del proveedor es obligatorio.")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		exists, err := s.repo.ExistsByName(ctx, tx, supplier.Name)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verificar proveedor")
		}
		if exists {
			return errDuplicateName
		}
		if err := s.repo.Create(ctx, tx, supplier); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errDuplicateName
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar proveedor")
		}
		return s.audit.Record(ctx, tx, &actorID, fmt.Sprintf("REGISTRÓ PROVEEDOR: %s", supplier.Name))
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(supplier)
	return &dto, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]SupplierDTO, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar proveedores")
	}
	out := make([]SupplierDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) SetStatus(ctx context.Context, actorID, id uint, input StatusInput) (*SupplierDTO, error) {
	status, err := enums.ParseRecordStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Estado inválido.")
	}
	var supplier *models.Supplier
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		supplier, err = s.repo.FindByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "No se encontró el proveedor.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar proveedor")
		}
		if supplier.Status == status {
			return nil
		}
		if err := s.repo.SetStatus(ctx, tx, supplier.ID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "actualizar proveedor")
		}
		supplier.Status = status
		return s.audit.Record(ctx, tx, &actorID, fmt.Sprintf("CAMBIÓ ESTADO DEL PROVEEDOR %s A %s", supplier.Name, status))
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(supplier)
	return &dto, nil
}
