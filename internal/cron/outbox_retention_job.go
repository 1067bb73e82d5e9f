package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	retentionBatchSize  = 1000
)

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	Repository    publishedPurger
	RetentionDays int
}

type publishedPurger interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// NewOutboxRetentionJob purges outbox rows published more than RetentionDays
// ago (30 when unset). It deletes in batches so one run never holds a long
// table lock.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil || params.Repository == nil {
		return nil, errors.New("outbox retention job needs a logger and a repository")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:   params.Logger,
		purger: params.Repository,
		keep:   time.Duration(days) * 24 * time.Hour,
		batch:  retentionBatchSize,
		now:    time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg   *logger.Logger
	purger publishedPurger
	keep   time.Duration
	batch  int
	now    func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.keep)
	var total int64
	for {
		n, err := j.purger.DeletePublishedBefore(ctx, cutoff, j.batch)
		total += n
		if err != nil {
			return fmt.Errorf("purge published outbox rows after %d: %w", total, err)
		}
		if n < int64(j.batch) || ctx.Err() != nil {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
	}), "outbox retention finished")
	return ctx.Err()
}
