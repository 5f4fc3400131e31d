package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/biblionet/biblionet-backend/api/routes"
	"github.com/biblionet/biblionet-backend/internal/app"
	"github.com/biblionet/biblionet-backend/internal/auth"
	"github.com/biblionet/biblionet-backend/pkg/auth/session"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
	"github.com/biblionet/biblionet-backend/pkg/ratelimit"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "api:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rt, err := app.Start(ctx, app.StartOptions{Service: "api", Redis: true, Registry: registry})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Error(context.Background(), "shutdown close failed", err)
		}
	}()
	cfg, logg, domain := rt.Config, rt.Logger, rt.Domain

	if err := domain.WarmIndex(ctx, logg); err != nil {
		return err
	}

	handler, limiter, err := buildHandler(rt, registry)
	if err != nil {
		return err
	}
	defer limiter.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": server.Addr})

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "api server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logg.Info(context.WithoutCancel(ctx), "api server draining")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildHandler wires the services that live only in the API (sessions and
// account onboarding) and mounts the router.
func buildHandler(rt *app.Runtime, registry *prometheus.Registry) (http.Handler, *ratelimit.KeyedRateLimiter, error) {
	cfg, logg, domain := rt.Config, rt.Logger, rt.Domain

	sessions, err := session.NewManager(rt.Redis, cfg.JWT)
	if err != nil {
		return nil, nil, fmt.Errorf("session manager: %w", err)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       domain.Users,
		CustomerRepo:   domain.CustomerRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
		Now:            domain.Clock.Now,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("auth service: %w", err)
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		Tx:             rt.DB,
		Users:          domain.Users,
		Customers:      domain.CustomerRepo,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("register service: %w", err)
	}
	staffService, err := auth.NewStaffRegisterService(auth.StaffRegisterServiceParams{
		Tx:             rt.DB,
		Users:          domain.Users,
		Audit:          domain.AuditRepo,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("staff register service: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          rt.DB,
		Redis:       rt.Redis,
		RateStore:   rt.Redis,
		Idempotency: rt.Redis,
		Limiter:     limiter,
		Sessions:    sessions,
		Gatherer:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),

		Auth:         authService,
		Register:     registerService,
		Staff:        staffService,
		Catalog:      domain.Catalog,
		Loans:        domain.Loans,
		LoanRules:    domain.LoanRules,
		Customers:    domain.Customers,
		Blocks:       domain.Mora,
		Reservations: domain.Reservations,
		SaleRequests: domain.SaleRequests,
		Sales:        domain.Sales,
		Suppliers:    domain.Suppliers,
		Purchases:    domain.Purchases,
		Dashboard:    domain.Dashboard,
		Audit:        domain.Audit,
	})
	return handler, limiter, nil
}
