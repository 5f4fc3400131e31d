package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/pagination"
	"github.com/biblionet/biblionet-backend/pkg/types"
	"gorm.io/gorm"
)

type customerRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Customer, error)
	List(ctx context.Context, query string, page pagination.Page) ([]models.Customer, int64, error)
}

// Service exposes customer lookups to staff and to the customer themselves.
type Service interface {
	Get(ctx context.Context, id uint) (*CustomerDTO, error)
	List(ctx context.Context, query string, page int) (*types.PageEnvelope[CustomerDTO], error)
}

type service struct {
	repo     customerRepository
	pageSize int
}

// NewService builds the customer service.
func NewService(repo customerRepository, pageSize int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo, pageSize: pageSize}, nil
}

func (s *service) Get(ctx context.Context, id uint) (*CustomerDTO, error) {
	customer, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cliente no encontrado.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar cliente")
	}
	dto := FromModel(customer)
	return &dto, nil
}

func (s *service) List(ctx context.Context, query string, page int) (*types.PageEnvelope[CustomerDTO], error) {
	p := pagination.NewPage(page, s.pageSize)
	rows, total, err := s.repo.List(ctx, query, p)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar clientes")
	}
	out := &types.PageEnvelope[CustomerDTO]{Items: make([]CustomerDTO, 0, len(rows)), Page: p.Clamp(total).Meta(total)}
	for i := range rows {
		out.Items = append(out.Items, FromModel(&rows[i]))
	}
	return out, nil
}
