package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/biblionet/biblionet-backend/pkg/db"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/migrate"
	"github.com/biblionet/biblionet-backend/pkg/redis"
)

// StartOptions selects what Start opens for a binary.
type StartOptions struct {
	// Service names the process in logs and config.
	Service string
	// Redis dials Redis as well. The API and the cron worker need it, most
	// admin subcommands do not.
	Redis bool
	// Registry receives the domain metrics. Nil means a private registry.
	Registry prometheus.Registerer
}

// Runtime is a started process: configuration, logger, open connections and
// the wired domain.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client
	Domain *Container
}

// Start reads .env when present, loads config, opens the database (running
// dev migrations when enabled), optionally Redis, and wires the domain. On
// error everything already opened is closed.
func Start(ctx context.Context, opts StartOptions) (rt *Runtime, err error) {
	boot := logger.New(logger.Options{ServiceName: opts.Service})
	if loadErr := godotenv.Load(); loadErr != nil {
		boot.Debug(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = opts.Service
	logg := logger.New(logger.Options{
		ServiceName: opts.Service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	rt = &Runtime{Config: cfg, Logger: logg}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	if rt.DB, err = db.New(ctx, cfg.DB, logg); err != nil {
		return rt, fmt.Errorf("open database: %w", err)
	}
	if err = migrate.MaybeRunDev(ctx, cfg, logg, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}
	if opts.Redis {
		if rt.Redis, err = redis.New(ctx, cfg.Redis, logg); err != nil {
			return rt, fmt.Errorf("open redis: %w", err)
		}
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	rt.Domain, err = Build(Params{
		Config:   cfg,
		Logger:   logg,
		DB:       rt.DB.DB(),
		Tx:       rt.DB,
		Registry: reg,
	})
	if err != nil {
		return rt, fmt.Errorf("wire services: %w", err)
	}
	return rt, nil
}

// Close releases the domain, Redis and the database, in that order.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs error
	if r.Domain != nil {
		errs = multierr.Append(errs, r.Domain.Close())
	}
	if r.Redis != nil {
		errs = multierr.Append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = multierr.Append(errs, r.DB.Close())
	}
	return errs
}
