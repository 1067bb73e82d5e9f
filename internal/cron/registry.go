package cron

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type scheduledJob struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry holds the cron jobs together with their cadence. A job whose
// cadence is zero is due on every tick.
type Registry struct {
	mu   sync.Mutex
	jobs []*scheduledJob
}

// NewRegistry builds a registry where every job runs on each tick.
// Nil jobs and repeated names are ignored.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		_ = registry.Register(job, 0)
	}
	return registry
}

// Register adds job with its minimum spacing between successful runs.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("job name required")
	}
	if every < 0 {
		return fmt.Errorf("job %s: negative cadence", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.jobs {
		if existing.job.Name() == name {
			return fmt.Errorf("job %s already registered", name)
		}
	}
	r.jobs = append(r.jobs, &scheduledJob{job: job, every: every})
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]Job, 0, len(r.jobs))
	for _, sj := range r.jobs {
		jobs = append(jobs, sj.job)
	}
	return jobs
}

// Due returns the jobs whose cadence has elapsed at now.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, sj := range r.jobs {
		if sj.lastRun.IsZero() || sj.every == 0 || !now.Before(sj.lastRun.Add(sj.every)) {
			due = append(due, sj.job)
		}
	}
	return due
}

// MarkRun records a successful run so the job waits a full cadence.
func (r *Registry) MarkRun(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sj := range r.jobs {
		if sj.job.Name() == name {
			sj.lastRun = at
			return
		}
	}
}
