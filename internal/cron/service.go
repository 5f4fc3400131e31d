package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
)

// ServiceParams configure the cron service. Location is the library's time
// zone; schedules fire on its wall clock.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    LockFactory
	Metrics  *metrics.CronJobMetrics
	Location *time.Location
}

// Service fires registered jobs on their schedules. A run only proceeds
// while it holds the job's lock, so several workers can be deployed.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    LockFactory
	metrics  *metrics.CronJobMetrics
	location *time.Location
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Locks == nil:
		return nil, errors.New("cron: lock factory required")
	case params.Registry == nil:
		return nil, errors.New("cron: registry required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		locks:    params.Locks,
		metrics:  params.Metrics,
		location: loc,
	}, nil
}

// Run blocks until ctx is done, then waits for in-flight runs.
func (s *Service) Run(ctx context.Context) error {
	scheduler := robfig.New(
		robfig.WithParser(scheduleParser),
		robfig.WithLocation(s.location),
		robfig.WithChain(robfig.SkipIfStillRunning(robfig.DiscardLogger)),
	)
	for _, job := range s.registry.Jobs() {
		if _, err := scheduler.AddFunc(job.Schedule(), func() { _ = s.runJob(ctx, job) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"job":      job.Name(),
			"schedule": job.Schedule(),
			"tz":       s.location.String(),
		}), "cron.job.scheduled")
	}

	scheduler.Start()
	<-ctx.Done()
	s.logg.Info(ctx, "cron.stopping")
	<-scheduler.Stop().Done()
	return ctx.Err()
}

// RunOnce fires name now, under its lock, as the admin CLI does.
func (s *Service) RunOnce(ctx context.Context, name string) error {
	job, ok := s.registry.Find(name)
	if !ok {
		return fmt.Errorf("unknown job %q (known: %v)", name, s.registry.Names())
	}
	return s.runJob(ctx, job)
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	ctx = s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})

	lock, err := s.locks(name)
	if err == nil {
		var held bool
		held, err = lock.Acquire(ctx)
		if err == nil && !held {
			s.metrics.Skipped(name)
			s.logg.Info(ctx, "cron.job.skipped: lock held by another worker")
			return nil
		}
	}
	if err != nil {
		s.metrics.Failed(name)
		s.logg.Error(ctx, "cron.job.lock_failed", err)
		return fmt.Errorf("lock %s: %w", name, err)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron.job.unlock_failed", err)
		}
	}()

	start := time.Now()
	err = job.Run(ctx)
	took := time.Since(start)
	s.metrics.Ran(name, took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron.job.failed", err)
		return err
	}
	s.logg.Info(ctx, "cron.job.done")
	return nil
}
