package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/cron"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/listings"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bootstrap"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/metrics"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/idempotency"
)

// lockName is shared by every cron-worker replica so only one runs a cycle.
const lockName = "cron-worker"

func main() {
	proc := bootstrap.Start("cron-worker")
	defer proc.Close()
	cfg, logg := proc.Config, proc.Logger

	startCtx := context.Background()
	dbClient := proc.Database(startCtx)
	redisClient := proc.Redis(startCtx)

	lock, err := cron.NewRedisLock(redisClient, lockName, 0)
	proc.Must("cron lock", err)
	marker, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	proc.Must("overdue notice marker", err)

	outboxRepo := outbox.NewRepository(dbClient.DB())
	overdueJob, err := cron.NewDeliveryOverdueJob(cron.DeliveryOverdueJobParams{
		Logger:   logg,
		DB:       dbClient,
		Listings: listings.NewRepository(dbClient.DB()),
		Outbox:   outbox.NewService(outboxRepo, logg),
		Marker:   marker,
	})
	proc.Must("delivery overdue job", err)
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		Repository:    outboxRepo,
		RetentionDays: cfg.Outbox.RetentionDays,
	})
	proc.Must("outbox retention job", err)

	jobs := cron.NewRegistry()
	proc.Must("register delivery overdue job", jobs.Register(overdueJob, cfg.Cron.OverdueEvery))
	proc.Must("register outbox retention job", jobs.Register(retentionJob, cfg.Cron.RetentionEvery))

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	proc.Must("cron service", err)

	ctx, stop := proc.SignalContext()
	defer stop()
	metrics.Serve(ctx, cfg.App.MetricsPort, prometheus.DefaultGatherer, logg)
	logg.Info(ctx, "cron worker started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Must("cron loop", err)
	}
	logg.Info(ctx, "cron worker stopped")
}
