package loanrules

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNoRule is returned when no loan rule has been configured yet.
var ErrNoRule = pkgerrors.New(pkgerrors.CodeStateConflict, "No hay reglas de préstamo configuradas. Configúralas primero.")

type ruleRepository interface {
	Current(ctx context.Context, tx *gorm.DB) (*models.LoanRule, error)
	Save(ctx context.Context, tx *gorm.DB, rule *models.LoanRule) error
	History(ctx context.Context) ([]models.LoanRuleHistory, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, actorID *uint, action string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service resolves and edits the lending policy.
type Service interface {
	Current(ctx context.Context) (*models.LoanRule, error)
	CurrentTx(ctx context.Context, tx *gorm.DB) (*models.LoanRule, error)
	Update(ctx context.Context, actorID uint, input UpdateInput) (*models.LoanRule, error)
	History(ctx context.Context) ([]RuleDTO, error)
}

// ServiceParams groups the rule service dependencies.
type ServiceParams struct {
	Repo   ruleRepository
	Audit  auditRecorder
	Tx     txRunner
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo  ruleRepository
	audit auditRecorder
	tx    txRunner
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds the rule resolver.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("loan rule repository required")
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
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, audit: params.Audit, tx: params.Tx, logg: params.Logger, now: now}, nil
}

func (s *service) Current(ctx context.Context) (*models.LoanRule, error) {
	return s.CurrentTx(ctx, nil)
}

func (s *service) CurrentTx(ctx context.Context, tx *gorm.DB) (*models.LoanRule, error) {
	rule, err := s.repo.Current(ctx, tx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRule
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar regla de préstamo")
	}
	return rule, nil
}

func (s *service) Update(ctx context.Context, actorID uint, input UpdateInput) (*models.LoanRule, error) {
	rule, err := parseInput(input)
	if err != nil {
		return nil, err
	}
	rule.UpdatedBy = &actorID
	rule.UpdatedAt = s.now().UTC()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Save(ctx, tx, rule); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "guardar regla de préstamo")
		}
		action := fmt.Sprintf("ACTUALIZÓ REGLAS DE PRÉSTAMO: plazo=%d días, límite=%d, mora=%s",
			rule.TermDays, rule.MaxActiveLoans, rule.DailyFee.StringFixed(2))
		if err := s.audit.Record(ctx, tx, &actorID, action); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar bitácora")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, actorID)
	s.logg.Info(ctx, "loan rule updated")
	return rule, nil
}

func (s *service) History(ctx context.Context) ([]RuleDTO, error) {
	rows, err := s.repo.History(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar historial de reglas")
	}
	out := make([]RuleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromHistory(row))
	}
	return out, nil
}

func parseInput(input UpdateInput) (*models.LoanRule, error) {
	term := strings.TrimSpace(input.TermDays)
	limit := strings.TrimSpace(input.MaxActiveLoans)
	fee := strings.TrimSpace(input.DailyFee)
	if term == "" || limit == "" || fee == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Todos los campos son obligatorios.").WithDetails(input)
	}

	termDays, err := strconv.Atoi(term)
	if err != nil || termDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "El plazo debe ser un número entero positivo.").WithDetails(input)
	}
	maxLoans, err := strconv.Atoi(limit)
	if err != nil || maxLoans <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "El límite de préstamos debe ser un número entero positivo.").WithDetails(input)
	}
	dailyFee, err := decimal.NewFromString(strings.ReplaceAll(fee, ",", "."))
	if err != nil || dailyFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "La mora diaria debe ser un número mayor o igual a cero.").WithDetails(input)
	}

	return &models.LoanRule{
		TermDays:       termDays,
		MaxActiveLoans: maxLoans,
		DailyFee:       money.Round2(dailyFee),
		Description:    strings.TrimSpace(input.Description),
	}, nil
}
