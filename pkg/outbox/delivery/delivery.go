// Package delivery runs Pub/Sub consumers of outbox events. It decodes the
// stored envelope, claims the event id so redeliveries are skipped, and maps
// handler results onto ack or nack.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/idempotency"
)

// ErrSkip tells the consumer the event is irrelevant to it. The message is
// acked quietly.
var ErrSkip = errors.New("event not handled by this consumer")

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as one redelivery cannot fix, such as a payload that
// does not decode. The message is acked and the failure logged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Event is one outbox event as received from Pub/Sub.
type Event struct {
	MessageID     string
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Data          json.RawMessage
}

// Decode rebuilds an Event from the envelope body and message attributes.
// Envelope fields win; attributes fill the gaps left by older publishers.
func Decode(msg *gcppubsub.Message) (Event, error) {
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return Event{}, fmt.Errorf("decode payload envelope: %w", err)
	}
	eventType, err := enums.ParseOutboxEventType(attribute(msg, "event_type"))
	if err != nil {
		return Event{}, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attribute(msg, "aggregate_type"))
	if err != nil {
		return Event{}, fmt.Errorf("aggregate_type: %w", err)
	}

	ev := Event{
		MessageID:     msg.ID,
		EventID:       strings.TrimSpace(env.EventID),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   attribute(msg, "aggregate_id"),
		OccurredAt:    env.OccurredAt,
		Actor:         env.Actor,
		Data:          env.Data,
	}
	if ev.EventID == "" {
		ev.EventID = attribute(msg, "event_id")
	}
	if ev.OccurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attribute(msg, "created_at")); err == nil {
			ev.OccurredAt = parsed
		}
	}
	ev.OccurredAt = ev.OccurredAt.UTC()

	switch {
	case ev.EventID == "":
		return Event{}, errors.New("event_id missing")
	case ev.AggregateID == "":
		return Event{}, errors.New("aggregate_id missing")
	}
	return ev, nil
}

func attribute(msg *gcppubsub.Message, key string) string {
	return strings.TrimSpace(msg.Attributes[key])
}

// ActorRole is the role of the user behind the event, empty for system
// events.
func (e Event) ActorRole() string {
	if e.Actor == nil {
		return ""
	}
	return e.Actor.Role
}

// Handler processes one decoded event.
type Handler func(ctx context.Context, ev Event) error

// Claimer is satisfied by *idempotency.Manager.
type Claimer interface {
	Claim(ctx context.Context, scope, id string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// Consumer binds a subscription to a handler under a consumer name. The name
// scopes idempotency claims, so two consumers of one event both run.
type Consumer struct {
	name   string
	sub    receiver
	claims Claimer
	handle Handler
	logg   *logger.Logger
}

// Params configures a Consumer.
type Params struct {
	Name         string
	Subscription *gcppubsub.Subscriber
	Claims       Claimer
	Handler      Handler
	Logger       *logger.Logger
}

func New(p Params) (*Consumer, error) {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return nil, errors.New("consumer name is required")
	case p.Subscription == nil:
		return nil, fmt.Errorf("%s: subscription is required", p.Name)
	case p.Claims == nil:
		return nil, fmt.Errorf("%s: idempotency manager is required", p.Name)
	case p.Handler == nil:
		return nil, fmt.Errorf("%s: handler is required", p.Name)
	case p.Logger == nil:
		return nil, fmt.Errorf("%s: logger is required", p.Name)
	}
	return &Consumer{name: p.Name, sub: p.Subscription, claims: p.Claims, handle: p.Handler, logg: p.Logger}, nil
}

// Run receives until ctx is canceled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if c.Process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Process handles one message and reports whether it should be acked.
func (c *Consumer) Process(ctx context.Context, msg *gcppubsub.Message) bool {
	ctx = c.logg.WithFields(ctx, map[string]any{
		"consumer":   c.name,
		"message_id": msg.ID,
	})
	ev, err := Decode(msg)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "dropping undecodable message")
		return true
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"event_id":     ev.EventID,
		"event_type":   ev.EventType,
		"aggregate_id": ev.AggregateID,
	})

	scope := idempotency.ConsumerScope(c.name)
	claimed, err := c.claims.Claim(ctx, scope, ev.EventID, 0)
	if err != nil {
		c.logg.Error(ctx, "idempotency claim failed", err)
		return false
	}
	if !claimed {
		c.logg.Debug(ctx, "event already processed")
		return true
	}

	err = c.handle(ctx, ev)
	switch {
	case err == nil:
		c.logg.Info(ctx, "event handled")
		return true
	case errors.Is(err, ErrSkip):
		c.logg.Debug(ctx, "event skipped")
		return true
	case IsPermanent(err):
		c.logg.Error(ctx, "event dropped", err)
		return true
	}

	c.logg.Error(ctx, "event handling failed, will retry", err)
	if relErr := c.claims.Release(ctx, scope, ev.EventID); relErr != nil {
		c.logg.Error(ctx, "failed to release idempotency claim", relErr)
	}
	return false
}
