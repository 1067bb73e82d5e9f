package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bootstrap"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/metrics"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/registry"
)

func main() {
	proc := bootstrap.Start("outbox-publisher")
	defer proc.Close()
	cfg, logg := proc.Config, proc.Logger

	startCtx := context.Background()
	dbClient := proc.Database(startCtx)
	pubsubClient := proc.PubSub(startCtx)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	proc.Must("event registry", err)

	relay, err := NewRelay(RelayParams{
		Outbox:   cfg.Outbox,
		Logger:   logg,
		DB:       dbClient,
		PubSub:   pubsubClient,
		Store:    outbox.NewRepository(dbClient.DB()),
		Registry: eventRegistry,
		Metrics:  metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	proc.Must("outbox relay", err)

	ctx, stop := proc.SignalContext()
	defer stop()
	metrics.Serve(ctx, cfg.App.MetricsPort, prometheus.DefaultGatherer, logg)
	logg.Info(ctx, "outbox publisher started")

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Must("outbox relay loop", err)
	}
	logg.Info(ctx, "outbox publisher stopped")
}
