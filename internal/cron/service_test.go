package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/biblionet/biblionet-backend/internal/mora"
	"github.com/biblionet/biblionet-backend/internal/notifications"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

func fakeLocks(locks map[string]*fakeLock) LockFactory {
	return func(job string) (Lock, error) {
		l, ok := locks[job]
		if !ok {
			l = &fakeLock{}
			locks[job] = l
		}
		return l, nil
	}
}

type testJob struct {
	name     string
	schedule string
	err      error
	runs     int
}

func (t *testJob) Name() string     { return t.name }
func (t *testJob) Schedule() string { return t.schedule }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, locks map[string]*fakeLock, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("register jobs: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Locks:    fakeLocks(locks),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestRunOnceRunsUnderLock(t *testing.T) {
	locks := map[string]*fakeLock{}
	ok := &testJob{name: "success", schedule: "0 * * * * *"}
	fail := &testJob{name: "fail", schedule: "0 * * * * *", err: errors.New("boom")}
	service := newTestService(t, locks, ok, fail)

	if err := service.RunOnce(context.Background(), "success"); err != nil {
		t.Fatalf("run success: %v", err)
	}
	if err := service.RunOnce(context.Background(), "fail"); err == nil {
		t.Fatalf("expected failure to surface")
	}
	if ok.runs != 1 || fail.runs != 1 {
		t.Fatalf("expected each job once, got %d and %d", ok.runs, fail.runs)
	}
	if locks["success"].released != 1 || locks["fail"].released != 1 {
		t.Fatalf("expected locks released after each run")
	}
	if err := service.RunOnce(context.Background(), "missing"); err == nil {
		t.Fatalf("expected unknown job error")
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	locks := map[string]*fakeLock{"busy": {held: true}}
	job := &testJob{name: "busy", schedule: "0 * * * * *"}
	service := newTestService(t, locks, job)

	if err := service.RunOnce(context.Background(), "busy"); err != nil {
		t.Fatalf("skip should not fail: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran while another worker held the lock")
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	registry, _ := NewRegistry()
	if _, err := NewService(ServiceParams{Registry: registry, Locks: fakeLocks(map[string]*fakeLock{})}); err == nil {
		t.Fatalf("expected missing logger to be rejected")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry}); err == nil {
		t.Fatalf("expected missing locks to be rejected")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop(), Locks: fakeLocks(map[string]*fakeLock{})}); err == nil {
		t.Fatalf("expected missing registry to be rejected")
	}
}

func TestRunOnceReportsLockErrors(t *testing.T) {
	job := &testJob{name: "locked", schedule: "0 * * * * *"}
	registry, err := NewRegistry(job)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Locks:    func(string) (Lock, error) { return nil, errors.New("redis down") },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background(), "locked"); err == nil || job.runs != 0 {
		t.Fatalf("expected lock error without running the job, err=%v runs=%d", err, job.runs)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	service := newTestService(t, map[string]*fakeLock{}, &testJob{name: "tick", schedule: "0 0 3 * * *"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("service did not stop")
	}
}

type stubSweeper struct{ calls int }

func (s *stubSweeper) SweepOverdue(context.Context) (mora.SweepResult, error) {
	s.calls++
	return mora.SweepResult{Evaluated: 2, Blocked: 1}, nil
}

type stubExpirer struct{ err error }

func (s stubExpirer) ExpireStale(context.Context) (int64, error) { return 3, s.err }

type stubReminders struct{ calls int }

func (s *stubReminders) SendOverdue(context.Context) (notifications.ReminderResult, error) {
	s.calls++
	return notifications.ReminderResult{}, nil
}

func TestDomainJobs(t *testing.T) {
	sweeper := &stubSweeper{}
	reminders := &stubReminders{}
	sweep, err := NewMoraSweepJob("0 15 0 * * *", sweeper, logger.Nop())
	if err != nil {
		t.Fatalf("sweep job: %v", err)
	}
	expiry, err := NewReservationExpiryJob("0 */30 * * * *", stubExpirer{err: errors.New("db down")})
	if err != nil {
		t.Fatalf("expiry job: %v", err)
	}
	remind, err := NewOverdueReminderJob("0 0 9 * * *", reminders)
	if err != nil {
		t.Fatalf("reminder job: %v", err)
	}
	if _, err := NewReservationExpiryJob("x", nil); err == nil {
		t.Fatalf("expected nil dependency to be rejected")
	}

	service := newTestService(t, map[string]*fakeLock{}, sweep, expiry, remind)
	if err := service.RunOnce(context.Background(), MoraSweepJob); err != nil || sweeper.calls != 1 {
		t.Fatalf("sweep run: err=%v calls=%d", err, sweeper.calls)
	}
	if err := service.RunOnce(context.Background(), ReservationExpiryJob); err == nil {
		t.Fatalf("expected expiry error to surface")
	}
	if err := service.RunOnce(context.Background(), OverdueReminderJob); err != nil || reminders.calls != 1 {
		t.Fatalf("reminder run: err=%v calls=%d", err, reminders.calls)
	}
}
