package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Interval is the tick period. Jobs with a longer cadence are skipped
	// until they come due.
	Interval time.Duration
}

// Service ticks on Interval and, while holding Lock, runs every job the
// registry reports as due. One replica works per tick.
type Service struct {
	ServiceParams
	now func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil || params.Lock == nil {
		return nil, errors.New("cron service needs a logger and a lock")
	}
	if params.Registry == nil {
		params.Registry = NewRegistry()
	}
	if params.Interval <= 0 {
		params.Interval = defaultInterval
	}
	return &Service{ServiceParams: params, now: time.Now}, nil
}

// Run ticks immediately and then every Interval until ctx ends, returning
// ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		if err := s.runCycle(ctx); err != nil {
			s.Logger.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle runs the due jobs once. A job that fails keeps its last success
// time, so it is due again on the next tick; the others carry on.
func (s *Service) runCycle(ctx context.Context) (err error) {
	held, err := s.Lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		s.Metrics.CycleSkipped()
		s.Logger.Debug(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if relErr := s.Lock.Release(ctx); relErr != nil {
			s.Logger.Error(ctx, "cron lock release failed", relErr)
		}
	}()

	due := s.Registry.Due(s.now())
	for _, job := range due {
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", job.Name(), jobErr))
			continue
		}
		s.Registry.MarkRun(job.Name(), s.now())
	}
	s.Logger.Info(s.Logger.WithFields(ctx, map[string]any{
		"due_jobs":    len(due),
		"failed_jobs": len(multierr.Errors(err)),
	}), "cron cycle finished")
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.Logger.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(started)
	s.Metrics.ObserveRun(job.Name(), elapsed, err)

	ctx = s.Logger.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.Logger.Error(ctx, "cron job failed", err)
		return err
	}
	s.Logger.Info(ctx, "cron job finished")
	return nil
}
