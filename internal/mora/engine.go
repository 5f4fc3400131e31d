// Package mora decides whether a customer is blocked for delinquency. Every
// automatic block or unblock goes through Engine.Evaluate.
package mora

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/calendar"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
	"github.com/biblionet/biblionet-backend/pkg/money"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const overdueReason = "Bloqueo automático por préstamos en mora."

// LateReturn describes a loan that was just returned after its due date.
type LateReturn struct {
	LateDays     int
	EstimatedFee *decimal.Decimal
}

// Status is the block state after an evaluation.
type Status struct {
	Blocked bool             `json:"blocked"`
	Kind    *enums.BlockKind `json:"kind,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}

// Err turns a blocked status into the error shown to staff and customers.
func (s Status) Err() error {
	if !s.Blocked {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "El cliente está bloqueado: %s", s.Reason)
}

// SweepResult summarises a sweep run.
type SweepResult struct {
	Evaluated int `json:"evaluated"`
	Blocked   int `json:"blocked"`
	Unblocked int `json:"unblocked"`
}

type blockRepository interface {
	Customer(ctx context.Context, tx *gorm.DB, id uint) (*models.Customer, error)
	CountOverdue(ctx context.Context, tx *gorm.DB, customerID uint, today time.Time) (int64, error)
	SaveBlock(ctx context.Context, tx *gorm.DB, customer *models.Customer) error
	SweepCandidates(ctx context.Context, today time.Time) ([]uint, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, actorID *uint, action string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EngineParams groups the engine dependencies.
type EngineParams struct {
	Repo    blockRepository
	Audit   auditRecorder
	Tx      txRunner
	Logger  *logger.Logger
	Metrics *metrics.LibraryMetrics
	Clock   calendar.Clock
}

// Engine evaluates and applies customer blocks.
type Engine struct {
	repo    blockRepository
	audit   auditRecorder
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.LibraryMetrics
	clock   calendar.Clock
}

// NewEngine builds the block engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("block repository required")
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
	return &Engine{
		repo:    params.Repo,
		audit:   params.Audit,
		tx:      params.Tx,
		logg:    params.Logger,
		metrics: params.Metrics,
		clock:   params.Clock,
	}, nil
}

// Evaluate recomputes the block state of one customer inside tx.
//
// A late return always blocks, replacing whatever block was there. Without
// one, an overdue loan blocks an unblocked customer, and an automatic block
// with nothing overdue is lifted. Manual blocks are left alone.
func (e *Engine) Evaluate(ctx context.Context, tx *gorm.DB, customerID uint, late *LateReturn) (Status, error) {
	customer, err := e.repo.Customer(ctx, tx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Status{}, pkgerrors.New(pkgerrors.CodeNotFound, "Cliente no encontrado.")
		}
		return Status{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar cliente")
	}

	if late != nil && late.LateDays > 0 {
		if err := e.block(ctx, tx, customer, enums.BlockKindAutomatic, lateReason(*late)); err != nil {
			return Status{}, err
		}
		return statusOf(customer), nil
	}

	overdue, err := e.repo.CountOverdue(ctx, tx, customer.ID, e.clock.Today())
	if err != nil {
		return Status{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "contar préstamos en mora")
	}

	switch {
	case overdue > 0 && !customer.Blocked:
		if err := e.block(ctx, tx, customer, enums.BlockKindAutomatic, overdueReason); err != nil {
			return Status{}, err
		}
	case overdue == 0 && customer.Blocked && isAutomatic(customer):
		if err := e.clear(ctx, tx, customer); err != nil {
			return Status{}, err
		}
		e.logg.Info(e.logg.WithCustomerID(ctx, customer.ID), "automatic block lifted")
	}
	return statusOf(customer), nil
}

// Refresh runs Evaluate in its own transaction so the outcome persists even
// when the caller's workflow is then rejected because of it.
func (e *Engine) Refresh(ctx context.Context, customerID uint) (Status, error) {
	var status Status
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		status, err = e.Evaluate(ctx, tx, customerID, nil)
		return err
	})
	return status, err
}

// BlockManual blocks a customer on a staff member's decision.
func (e *Engine) BlockManual(ctx context.Context, actorID, customerID uint, reason string) (*models.Customer, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Bloqueo manual por el personal."
	}
	var customer *models.Customer
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		customer, err = e.load(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if err := e.block(ctx, tx, customer, enums.BlockKindManual, reason); err != nil {
			return err
		}
		return e.record(ctx, tx, actorID, fmt.Sprintf("BLOQUEÓ CLIENTE dni=%s: %s", customer.DNI, reason))
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// Unblock clears any block, automatic or manual.
func (e *Engine) Unblock(ctx context.Context, actorID, customerID uint) (*models.Customer, error) {
	var customer *models.Customer
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		customer, err = e.load(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if err := e.clear(ctx, tx, customer); err != nil {
			return err
		}
		return e.record(ctx, tx, actorID, fmt.Sprintf("DESBLOQUEÓ CLIENTE dni=%s", customer.DNI))
	})
	if err != nil {
		return nil, err
	}
	e.logg.Info(e.logg.WithCustomerID(ctx, customerID), "customer unblocked")
	return customer, nil
}

// SweepOverdue evaluates every customer whose state may have changed since
// their last evaluation. One customer's failure does not stop the rest.
func (e *Engine) SweepOverdue(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	ids, err := e.repo.SweepCandidates(ctx, e.clock.Today())
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listar clientes a evaluar")
	}

	var errs error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, multierr.Append(errs, err)
		}
		var before, after bool
		err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
			customer, err := e.repo.Customer(ctx, tx, id)
			if err != nil {
				return err
			}
			before = customer.Blocked
			status, err := e.Evaluate(ctx, tx, id, nil)
			after = status.Blocked
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("customer %d: %w", id, err))
			continue
		}
		result.Evaluated++
		switch {
		case !before && after:
			result.Blocked++
		case before && !after:
			result.Unblocked++
		}
	}
	return result, errs
}

func (e *Engine) load(ctx context.Context, tx *gorm.DB, customerID uint) (*models.Customer, error) {
	customer, err := e.repo.Customer(ctx, tx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cliente no encontrado.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cargar cliente")
	}
	return customer, nil
}

func (e *Engine) block(ctx context.Context, tx *gorm.DB, customer *models.Customer, kind enums.BlockKind, reason string) error {
	at := e.now()
	customer.Blocked = true
	customer.BlockKind = &kind
	customer.BlockReason = &reason
	customer.BlockedAt = &at
	if err := e.repo.SaveBlock(ctx, tx, customer); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bloquear cliente")
	}
	e.metrics.CustomerBlocked(kind.String())
	ctx = e.logg.WithFields(ctx, map[string]any{"customer_id": customer.ID, "block_kind": kind.String()})
	e.logg.Info(ctx, "customer blocked")
	return nil
}

func (e *Engine) clear(ctx context.Context, tx *gorm.DB, customer *models.Customer) error {
	customer.Blocked = false
	customer.BlockKind = nil
	customer.BlockReason = nil
	customer.BlockedAt = nil
	if err := e.repo.SaveBlock(ctx, tx, customer); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "desbloquear cliente")
	}
	return nil
}

func (e *Engine) record(ctx context.Context, tx *gorm.DB, actorID uint, action string) error {
	if err := e.audit.Record(ctx, tx, &actorID, action); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registrar bitácora")
	}
	return nil
}

func (e *Engine) now() time.Time {
	if e.clock.Now != nil {
		return e.clock.Now().UTC()
	}
	return time.Now().UTC()
}

func lateReason(late LateReturn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bloqueo automático por mora: devolución con %d día(s) de atraso", late.LateDays)
	if late.EstimatedFee != nil {
		fmt.Fprintf(&b, ", mora estimada %s", money.Format(*late.EstimatedFee))
	}
	b.WriteString(".")
	return b.String()
}

func isAutomatic(c *models.Customer) bool {
	return c.BlockKind != nil && *c.BlockKind == enums.BlockKindAutomatic
}

func statusOf(c *models.Customer) Status {
	return Status{Blocked: c.Blocked, Kind: c.BlockKind, Reason: c.Reason()}
}
