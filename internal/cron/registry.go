package cron

import (
	"context"
	"fmt"

	robfig "github.com/robfig/cron/v3"
)

// Job is one periodic task of the cron worker.
type Job interface {
	Name() string
	// Schedule is a six-field cron expression, seconds first.
	Schedule() string
	Run(ctx context.Context) error
}

// scheduleParser accepts the same expressions the scheduler runs.
var scheduleParser = robfig.NewParser(robfig.Second | robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow | robfig.Descriptor)

// Registry holds jobs by name in registration order.
type Registry struct {
	order  []string
	byName map[string]Job
}

// NewRegistry registers jobs in order, skipping nils.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds job. Names must be unique and schedules must parse.
func (r *Registry) Register(job Job) error {
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron job without a name")
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	if _, err := scheduleParser.Parse(job.Schedule()); err != nil {
		return fmt.Errorf("cron job %q schedule %q: %w", name, job.Schedule(), err)
	}
	if r.byName == nil {
		r.byName = map[string]Job{}
	}
	r.byName[name] = job
	r.order = append(r.order, name)
	return nil
}

// Jobs returns a copy in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		jobs = append(jobs, r.byName[name])
	}
	return jobs
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Find(name string) (Job, bool) {
	job, ok := r.byName[name]
	return job, ok
}
