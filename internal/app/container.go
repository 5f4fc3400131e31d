// Package app assembles repositories and services over a database handle so
// every binary wires the domain the same way.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/biblionet/biblionet-backend/internal/audit"
	"github.com/biblionet/biblionet-backend/internal/catalog"
	"github.com/biblionet/biblionet-backend/internal/copies"
	"github.com/biblionet/biblionet-backend/internal/cron"
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/internal/dashboard"
	"github.com/biblionet/biblionet-backend/internal/loanrules"
	"github.com/biblionet/biblionet-backend/internal/loans"
	"github.com/biblionet/biblionet-backend/internal/mora"
	"github.com/biblionet/biblionet-backend/internal/notifications"
	"github.com/biblionet/biblionet-backend/internal/purchases"
	"github.com/biblionet/biblionet-backend/internal/reservations"
	"github.com/biblionet/biblionet-backend/internal/salerequests"
	"github.com/biblionet/biblionet-backend/internal/sales"
	"github.com/biblionet/biblionet-backend/internal/search"
	"github.com/biblionet/biblionet-backend/internal/suppliers"
	"github.com/biblionet/biblionet-backend/internal/users"
	"github.com/biblionet/biblionet-backend/pkg/calendar"
	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/mailer"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Params are the shared resources a Container is built from.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *gorm.DB
	Tx       txRunner
	Registry prometheus.Registerer
}

// Container holds the wired domain. Repositories are exported for the
// admin tooling that works below the service layer.
type Container struct {
	Clock   calendar.Clock
	Index   *search.Index
	Metrics *metrics.LibraryMetrics

	Users         *users.Repository
	Books         *catalog.Repository
	CustomerRepo  *customers.Repository
	AuditRepo     *audit.Repository
	LoanRepo      *loans.Repository
	RuleRepo      *loanrules.Repository
	SupplierRepo  *suppliers.Repository
	ReservationDB *reservations.Repository

	Audit        audit.Service
	Catalog      catalog.Service
	Customers    customers.Service
	LoanRules    loanrules.Service
	Mora         *mora.Engine
	Loans        loans.Service
	Reservations reservations.Service
	SaleRequests salerequests.Service
	Sales        sales.Service
	Suppliers    suppliers.Service
	Purchases    purchases.Service
	Dashboard    dashboard.Service
	Reminders    *notifications.Reminders
}

// Build wires every repository and service.
func Build(p Params) (*Container, error) {
	if p.Config == nil || p.Logger == nil || p.DB == nil || p.Tx == nil {
		return nil, fmt.Errorf("config, logger, db and tx runner are required")
	}
	cfg, logg := p.Config, p.Logger

	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}
	clock := calendar.NewClock(loc)

	reg := p.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Container{
		Clock:         clock,
		Metrics:       metrics.NewLibraryMetrics(reg),
		Users:         users.NewRepository(p.DB),
		Books:         catalog.NewRepository(p.DB),
		CustomerRepo:  customers.NewRepository(p.DB),
		AuditRepo:     audit.NewRepository(p.DB),
		LoanRepo:      loans.NewRepository(p.DB),
		RuleRepo:      loanrules.NewRepository(p.DB),
		SupplierRepo:  suppliers.NewRepository(p.DB),
		ReservationDB: reservations.NewRepository(p.DB),
	}

	if c.Index, err = search.NewIndex(); err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	covers, err := catalog.NewCoverStore(cfg.Catalog.CoverDir, cfg.Catalog.MaxCoverBytes())
	if err != nil {
		return nil, err
	}

	if c.Audit, err = audit.NewService(c.AuditRepo); err != nil {
		return nil, err
	}
	if c.Catalog, err = catalog.NewService(catalog.ServiceParams{
		Repo:              c.Books,
		Index:             c.Index,
		Covers:            covers,
		Audit:             c.AuditRepo,
		Tx:                p.Tx,
		Logger:            logg,
		PageSize:          cfg.Catalog.PageSize,
		InventoryPageSize: cfg.Catalog.InventoryPageSize,
	}); err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	if c.Customers, err = customers.NewService(c.CustomerRepo, cfg.Catalog.LoansPageSize); err != nil {
		return nil, err
	}
	if c.LoanRules, err = loanrules.NewService(loanrules.ServiceParams{
		Repo:   c.RuleRepo,
		Audit:  c.AuditRepo,
		Tx:     p.Tx,
		Logger: logg,
		Now:    clock.Now,
	}); err != nil {
		return nil, fmt.Errorf("loan rules service: %w", err)
	}
	if c.Mora, err = mora.NewEngine(mora.EngineParams{
		Repo:    mora.NewRepository(p.DB),
		Audit:   c.AuditRepo,
		Tx:      p.Tx,
		Logger:  logg,
		Metrics: c.Metrics,
		Clock:   clock,
	}); err != nil {
		return nil, fmt.Errorf("mora engine: %w", err)
	}
	if c.Loans, err = loans.NewService(loans.ServiceParams{
		Repo:      c.LoanRepo,
		Rules:     c.LoanRules,
		Customers: c.CustomerRepo,
		Books:     c.Books,
		Mora:      c.Mora,
		Copies:    copies.NewGenerator(),
		Audit:     c.AuditRepo,
		Tx:        p.Tx,
		Logger:    logg,
		Metrics:   c.Metrics,
		Clock:     clock,
		PageSize:  cfg.Catalog.LoansPageSize,
	}); err != nil {
		return nil, fmt.Errorf("loan service: %w", err)
	}
	if c.Reservations, err = reservations.NewService(reservations.ServiceParams{
		Repo:   c.ReservationDB,
		Books:  c.Books,
		Mora:   c.Mora,
		Tx:     p.Tx,
		Logger: logg,
		TTL:    cfg.Catalog.ReservationTTL(),
		Now:    clock.Now,
	}); err != nil {
		return nil, fmt.Errorf("reservation service: %w", err)
	}

	requestRepo := salerequests.NewRepository(p.DB)
	if c.SaleRequests, err = salerequests.NewService(salerequests.ServiceParams{
		Repo:         requestRepo,
		Reservations: c.ReservationDB,
		Books:        c.Books,
		Tx:           p.Tx,
		Logger:       logg,
		PageSize:     cfg.Catalog.LoansPageSize,
	}); err != nil {
		return nil, fmt.Errorf("sale request service: %w", err)
	}
	if c.Sales, err = sales.NewService(sales.ServiceParams{
		Repo:          sales.NewRepository(p.DB),
		Requests:      requestRepo,
		Reservations:  c.ReservationDB,
		Customers:     c.CustomerRepo,
		Books:         c.Books,
		Audit:         c.AuditRepo,
		Tx:            p.Tx,
		Logger:        logg,
		Metrics:       c.Metrics,
		ReceiptPrefix: cfg.Sales.ReceiptPrefix,
		PageSize:      cfg.Catalog.LoansPageSize,
	}); err != nil {
		return nil, fmt.Errorf("sales service: %w", err)
	}
	if c.Suppliers, err = suppliers.NewService(c.SupplierRepo, c.AuditRepo, p.Tx, logg); err != nil {
		return nil, fmt.Errorf("supplier service: %w", err)
	}
	if c.Purchases, err = purchases.NewService(purchases.ServiceParams{
		Repo:      purchases.NewRepository(p.DB),
		Suppliers: c.SupplierRepo,
		Books:     c.Books,
		Audit:     c.AuditRepo,
		Tx:        p.Tx,
		Logger:    logg,
		PageSize:  cfg.Catalog.LoansPageSize,
	}); err != nil {
		return nil, fmt.Errorf("purchase service: %w", err)
	}
	if c.Dashboard, err = dashboard.NewService(c.Books, c.LoanRepo, c.Users, clock); err != nil {
		return nil, err
	}
	if c.Reminders, err = notifications.NewReminders(c.LoanRepo, c.LoanRules, mailer.New(cfg.Sendgrid, logg), logg, clock); err != nil {
		return nil, fmt.Errorf("reminders: %w", err)
	}
	return c, nil
}

// WarmIndex loads every book into the search index.
func (c *Container) WarmIndex(ctx context.Context, logg *logger.Logger) error {
	n, err := c.Catalog.RebuildIndex(ctx)
	if err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}
	logg.Info(logg.WithField(ctx, "books", n), "search index warmed")
	return nil
}

// Close releases the search index.
func (c *Container) Close() error {
	if c.Index == nil {
		return nil
	}
	return c.Index.Close()
}

// CronRegistry registers the periodic jobs on their configured schedules.
func (c *Container) CronRegistry(cfg config.CronConfig, logg *logger.Logger) (*cron.Registry, error) {
	sweep, err := cron.NewMoraSweepJob(cfg.MoraSweepSchedule, c.Mora, logg)
	if err != nil {
		return nil, err
	}
	expiry, err := cron.NewReservationExpiryJob(cfg.ReservationExpirySchedule, c.Reservations)
	if err != nil {
		return nil, err
	}
	reminders, err := cron.NewOverdueReminderJob(cfg.OverdueReminderSchedule, c.Reminders)
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(sweep, expiry, reminders)
}
