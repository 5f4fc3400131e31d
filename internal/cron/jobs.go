package cron

import (
	"context"
	"fmt"

	"github.com/biblionet/biblionet-backend/internal/mora"
	"github.com/biblionet/biblionet-backend/internal/notifications"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

const (
	MoraSweepJob         = "mora-sweep"
	ReservationExpiryJob = "reservation-expiry"
	OverdueReminderJob   = "overdue-reminders"
)

type overdueSweeper interface {
	SweepOverdue(ctx context.Context) (mora.SweepResult, error)
}

type reservationExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

type reminderSender interface {
	SendOverdue(ctx context.Context) (notifications.ReminderResult, error)
}

// funcJob adapts a closure to Job.
type funcJob struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Schedule() string              { return j.schedule }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// NewMoraSweepJob blocks and unblocks customers from their overdue loans.
func NewMoraSweepJob(schedule string, engine overdueSweeper, logg *logger.Logger) (Job, error) {
	if engine == nil || logg == nil {
		return nil, fmt.Errorf("%s: engine and logger required", MoraSweepJob)
	}
	return &funcJob{name: MoraSweepJob, schedule: schedule, run: func(ctx context.Context) error {
		res, err := engine.SweepOverdue(ctx)
		logg.Info(logg.WithFields(ctx, map[string]any{
			"evaluated": res.Evaluated,
			"blocked":   res.Blocked,
			"unblocked": res.Unblocked,
		}), "mora sweep finished")
		return err
	}}, nil
}

// NewReservationExpiryJob expires lapsed reservations.
func NewReservationExpiryJob(schedule string, svc reservationExpirer) (Job, error) {
	if svc == nil {
		return nil, fmt.Errorf("%s: reservation service required", ReservationExpiryJob)
	}
	return &funcJob{name: ReservationExpiryJob, schedule: schedule, run: func(ctx context.Context) error {
		_, err := svc.ExpireStale(ctx)
		return err
	}}, nil
}

// NewOverdueReminderJob emails customers with overdue loans.
func NewOverdueReminderJob(schedule string, reminders reminderSender) (Job, error) {
	if reminders == nil {
		return nil, fmt.Errorf("%s: reminder sender required", OverdueReminderJob)
	}
	return &funcJob{name: OverdueReminderJob, schedule: schedule, run: func(ctx context.Context) error {
		_, err := reminders.SendOverdue(ctx)
		return err
	}}, nil
}
