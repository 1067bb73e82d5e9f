package main

import (
	"context"
	"errors"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/notifications"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bootstrap"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/idempotency"
)

func main() {
	proc := bootstrap.Start("notifications-worker")
	defer proc.Close()
	cfg, logg := proc.Config, proc.Logger

	startCtx := context.Background()
	dbClient := proc.Database(startCtx)
	redisClient := proc.Redis(startCtx)
	pubsubClient := proc.PubSub(startCtx)

	proc.Must("notifications subscription", pubsubClient.EnsureSubscription(startCtx, cfg.PubSub.NotificationsSubscription))
	subscription := pubsubClient.NotificationsSubscription()
	if subscription == nil {
		proc.Must("notifications subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	proc.Must("idempotency manager", err)

	consumer, err := notifications.NewConsumer(notifications.NewRepository(dbClient.DB()), subscription, manager, logg)
	proc.Must("notification consumer", err)

	service, err := NewService(ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	proc.Must("notifications worker", err)

	ctx, stop := proc.SignalContext()
	defer stop()
	logg.Info(ctx, "notifications worker started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Must("notifications loop", err)
	}
	logg.Info(ctx, "notifications worker stopped")
}
