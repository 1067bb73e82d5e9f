// Package worker feeds marketplace events from the analytics subscription
// into the BigQuery row router.
package worker

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/router"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/delivery"
)

const consumerName = "analytics"

// EnvelopeHandler turns one analytics envelope into warehouse rows.
type EnvelopeHandler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// NewConsumer builds the analytics subscription consumer.
func NewConsumer(sub *gcppubsub.Subscriber, handler EnvelopeHandler, claims delivery.Claimer, logg *logger.Logger) (*delivery.Consumer, error) {
	if handler == nil {
		return nil, errors.New("analytics handler is required")
	}
	return delivery.New(delivery.Params{
		Name:         consumerName,
		Subscription: sub,
		Claims:       claims,
		Handler:      Adapt(handler),
		Logger:       logg,
	})
}

// Adapt converts delivered events to envelopes. Event types the dashboard
// does not chart are skipped rather than retried.
func Adapt(handler EnvelopeHandler) delivery.Handler {
	return func(ctx context.Context, ev delivery.Event) error {
		err := handler.Handle(ctx, Envelope(ev))
		if errors.Is(err, router.ErrUnsupportedEventType) {
			return fmt.Errorf("%w: %s", delivery.ErrSkip, ev.EventType)
		}
		return err
	}
}

// Envelope is the analytics view of a delivered event.
func Envelope(ev delivery.Event) types.Envelope {
	return types.Envelope{
		EventID:       ev.EventID,
		EventType:     ev.EventType,
		AggregateType: ev.AggregateType,
		AggregateID:   ev.AggregateID,
		ActorRole:     ev.ActorRole(),
		OccurredAt:    ev.OccurredAt,
		Payload:       ev.Data,
	}
}
