package main

import (
	"context"
	"errors"
	"time"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/router"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/worker"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/writer"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bigquery"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bootstrap"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/idempotency"
)

const finalFlushTimeout = 10 * time.Second

func main() {
	proc := bootstrap.Start("analytics-worker")
	defer proc.Close()
	cfg, logg := proc.Config, proc.Logger

	startCtx := context.Background()
	redisClient := proc.Redis(startCtx)
	pubsubClient := proc.PubSub(startCtx)

	bqClient, err := bigquery.NewClient(startCtx, cfg.GCP, cfg.BigQuery, []bigquery.TableSpec{
		types.MarketplaceEventsTable(cfg.BigQuery.MarketplaceEventsTable),
	}, logg)
	proc.Must("bigquery", err)
	proc.Track("bigquery", bqClient)

	proc.Must("analytics subscription", pubsubClient.EnsureSubscription(startCtx, cfg.PubSub.AnalyticsSubscription))
	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		proc.Must("analytics subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	proc.Must("idempotency manager", err)

	analyticsWriter, err := writer.New(bqClient, writer.Config{
		MarketplaceTable: cfg.BigQuery.MarketplaceEventsTable,
		BatchSize:        cfg.BigQuery.InsertBatchSize,
	})
	proc.Must("analytics writer", err)

	routingHandler, err := router.NewRouter(analyticsWriter, logg, nil)
	proc.Must("analytics router", err)

	consumer, err := worker.NewConsumer(subscription, routingHandler, manager, logg)
	proc.Must("analytics consumer", err)

	ctx, stop := proc.SignalContext()
	defer stop()
	logg.Info(ctx, "analytics worker started")

	go analyticsWriter.RunFlusher(ctx, cfg.BigQuery.FlushInterval, func(err error) {
		logg.Error(logg.WithField(ctx, "pending_rows", analyticsWriter.Pending()), "periodic analytics flush failed", err)
	})

	runErr := consumer.Run(ctx)

	// Rows still buffered when the subscription stops are written before exit.
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
	defer cancel()
	if err := analyticsWriter.Flush(flushCtx); err != nil {
		logg.Error(flushCtx, "final analytics flush failed", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		proc.Must("analytics loop", runErr)
	}
	logg.Info(ctx, "analytics worker stopped")
}
