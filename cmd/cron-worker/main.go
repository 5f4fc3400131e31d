package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/biblionet/biblionet-backend/internal/app"
	"github.com/biblionet/biblionet-backend/internal/cron"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cron-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, app.StartOptions{
		Service:  "cron-worker",
		Redis:    true,
		Registry: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Error(context.Background(), "shutdown close failed", err)
		}
	}()
	cfg, logg := rt.Config, rt.Logger

	registry, err := rt.Domain.CronRegistry(cfg.Cron, logg)
	if err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	location, err := cfg.App.Location()
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locks: cron.RedisLocks(rt.Redis, func(job string) string {
			return rt.Redis.LockKey("cron", job)
		}, cfg.Cron.LockTTL),
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Location: location,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"jobs": registry.Names(),
	})
	logg.Info(ctx, "cron worker started")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run: %w", err)
	}
	logg.Info(context.WithoutCancel(ctx), "cron worker stopped")
	return nil
}
