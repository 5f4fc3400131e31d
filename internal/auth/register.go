package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/internal/users"
	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/biblionet/biblionet-backend/pkg/db"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/security"
	"gorm.io/gorm"
)

// RegisterRequest is the customer self-registration form.
type RegisterRequest struct {
	FirstName            string `json:"first_name" validate:"required"`
	LastName             string `json:"last_name" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	DNI                  string `json:"dni" validate:"required"`
	Address              string `json:"address" validate:"required"`
	Phone                string `json:"phone" validate:"required"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
}

// RegisterResponse confirms the new account.
type RegisterResponse struct {
	Message  string                `json:"message"`
	Customer customers.CustomerDTO `json:"customer"`
}

// RegisterService handles the customer onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
}

type registerUserRepository interface {
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	EnsureRole(ctx context.Context, tx *gorm.DB, name enums.Role) (*models.Role, error)
	Create(ctx context.Context, tx *gorm.DB, dto users.NewUser) (*models.User, error)
}

type registerCustomerRepository interface {
	ExistsByDNI(ctx context.Context, tx *gorm.DB, dni string) (bool, error)
	Create(ctx context.Context, tx *gorm.DB, customer *models.Customer) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	Tx             txRunner
	Users          registerUserRepository
	Customers      registerCustomerRepository
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type registerService struct {
	tx          txRunner
	users       registerUserRepository
	customers   registerCustomerRepository
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Users == nil || params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user and customer repositories required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &registerService{
		tx:          params.Tx,
		users:       params.Users,
		customers:   params.Customers,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	firstName := strings.ToLower(strings.TrimSpace(req.FirstName))
	lastName := strings.ToLower(strings.TrimSpace(req.LastName))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	dni := strings.TrimSpace(req.DNI)
	address := strings.TrimSpace(req.Address)
	phone := strings.TrimSpace(req.Phone)
	if firstName == "" || lastName == "" || email == "" || dni == "" || address == "" || phone == "" || req.Password == "" || req.PasswordConfirmation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Completa todos los campos obligatorios.")
	}
	if err := passwordPolicy(req.Password, req.PasswordConfirmation); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.Customer
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if exists, err := s.users.ExistsByEmail(ctx, tx, email); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		} else if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "Ya existe una cuenta con ese correo.")
		}
		if exists, err := s.customers.ExistsByDNI(ctx, tx, dni); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check customer dni")
		} else if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "Ya existe un cliente registrado con ese DNI.")
		}

		role, err := s.users.EnsureRole(ctx, tx, enums.RoleCustomer)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure customer role")
		}
		user, err := s.users.Create(ctx, tx, users.NewUser{
			RoleID:       role.ID,
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    firstName,
			LastName:     lastName,
		})
		if err != nil {
			return conflictOr(err, "create user")
		}
		user.Role = *role

		customer := &models.Customer{
			UserID:  user.ID,
			DNI:     dni,
			Address: address,
			Phone:   phone,
			Status:  enums.RecordStatusActive,
		}
		if err := s.customers.Create(ctx, tx, customer); err != nil {
			return conflictOr(err, "create customer")
		}
		customer.User = *user
		created = customer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithCustomerID(ctx, created.ID), "customer registered")
	return &RegisterResponse{
		Message:  "¡Cuenta creada con éxito! Ahora puedes iniciar sesión.",
		Customer: customers.FromModel(created),
	}, nil
}

// conflictOr maps a unique violation lost to a concurrent insert onto the
// same conflict the pre-checks report.
func conflictOr(err error, msg string) error {
	switch {
	case db.IsUniqueViolation(err, "users_email_key"):
		return pkgerrors.New(pkgerrors.CodeConflict, "Ya existe una cuenta con ese correo.")
	case db.IsUniqueViolation(err, "customers_dni_key"):
		return pkgerrors.New(pkgerrors.CodeConflict, "Ya existe un cliente registrado con ese DNI.")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.New(pkgerrors.CodeConflict, "El registro ya existe.")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("%s failed", msg))
}
