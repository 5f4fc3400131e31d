package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/biblionet/biblionet-backend/internal/users"
	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/security"
	"gorm.io/gorm"
)

const tempPasswordLength = 12

// StaffRegisterRequest is the administrator's employee form. An empty
// password makes the service generate a temporary one.
type StaffRegisterRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password"`
	Role      string `json:"role" validate:"required"`
	Status    string `json:"status"`
}

// StaffRegisterResponse returns the new employee and, when one was
// generated, the temporary password to hand over.
type StaffRegisterResponse struct {
	Message           string         `json:"message"`
	User              *users.UserDTO `json:"user"`
	TemporaryPassword string         `json:"temporary_password,omitempty"`
}

// StaffRegisterService creates librarian and administrator accounts.
type StaffRegisterService interface {
	Register(ctx context.Context, actorID uint, req StaffRegisterRequest) (*StaffRegisterResponse, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, actorID *uint, action string) error
}

// StaffRegisterServiceParams names the dependencies for the staff register flow.
type StaffRegisterServiceParams struct {
	Tx             txRunner
	Users          registerUserRepository
	Audit          auditRecorder
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type staffRegisterService struct {
	tx          txRunner
	users       registerUserRepository
	audit       auditRecorder
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewStaffRegisterService builds the staff registration service.
func NewStaffRegisterService(params StaffRegisterServiceParams) (StaffRegisterService, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit recorder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &staffRegisterService{
		tx:          params.Tx,
		users:       params.Users,
		audit:       params.Audit,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *staffRegisterService) Register(ctx context.Context, actorID uint, req StaffRegisterRequest) (*StaffRegisterResponse, error) {
	firstName := strings.ToLower(strings.TrimSpace(req.FirstName))
	lastName := strings.ToLower(strings.TrimSpace(req.LastName))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if firstName == "" || lastName == "" || email == "" || strings.TrimSpace(req.Role) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Completa todos los campos obligatorios.")
	}

	password := req.Password
	var temporary string
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
		}
		password, temporary = generated, generated
	} else if err := passwordPolicy(password, password); err != nil {
		return nil, err
	}

	role, err := parseStaffRole(req.Role)
	if err != nil {
		return nil, err
	}
	status := enums.RecordStatusActive
	if raw := strings.TrimSpace(req.Status); raw != "" {
		parsed, err := enums.ParseRecordStatus(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Estado inválido.")
		}
		status = parsed
	}

	passwordHash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if exists, err := s.users.ExistsByEmail(ctx, tx, email); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		} else if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "Ya existe un usuario con ese correo.")
		}

		roleRow, err := s.users.EnsureRole(ctx, tx, role)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load role")
		}
		user, err := s.users.Create(ctx, tx, users.NewUser{
			RoleID:       roleRow.ID,
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    firstName,
			LastName:     lastName,
			FirstLogin:   true,
			Status:       status,
		})
		if err != nil {
			return conflictOr(err, "create user")
		}
		user.Role = *roleRow

		action := fmt.Sprintf("REGISTRO EMPLEADO: %s como %s", email, role)
		if err := s.audit.Record(ctx, tx, &actorID, action); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar bitácora")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, actorID), "staff member registered")
	return &StaffRegisterResponse{
		Message:           fmt.Sprintf("Empleado %s %s creado exitosamente.", firstName, lastName),
		User:              users.FromModel(created),
		TemporaryPassword: temporary,
	}, nil
}
