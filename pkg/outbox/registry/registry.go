// Package registry knows which outbox event types exist, which aggregate
// owns each one and how their payloads decode.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/payloads"
)

// ErrUnknownEvent marks rows whose event type is not registered.
var ErrUnknownEvent = errors.New("unsupported event type")

// NonRetryableError tells the publisher a row will never succeed and belongs
// in the dead-letter table.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

func describe[P any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		newPayload:    func() any { return new(P) },
	}
}

// NewEventRegistry routes every marketplace event to the domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, errors.New("domain topic is required")
	}
	descriptors := []EventDescriptor{
		describe[payloads.ListingPostedEvent](enums.EventListingPosted, enums.AggregateSell),
		describe[payloads.ListingClaimedEvent](enums.EventListingClaimed, enums.AggregateSell),
		describe[payloads.ListingPaymentRecordedEvent](enums.EventListingPaymentRecorded, enums.AggregateSell),
		describe[payloads.ListingPaidEvent](enums.EventListingPaid, enums.AggregateSell),
		describe[payloads.ListingCompletedEvent](enums.EventListingCompleted, enums.AggregateSell),
		describe[payloads.ListingCancelledEvent](enums.EventListingCancelled, enums.AggregateSell),
		describe[payloads.ListingReleasedEvent](enums.EventListingReleased, enums.AggregatePurchase),
		describe[payloads.PaymentFailedEvent](enums.EventPaymentFailed, enums.AggregatePayment),
		describe[payloads.DeliveryOverdueEvent](enums.EventDeliveryOverdue, enums.AggregateSell),
	}
	reg := &EventRegistry{byType: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		d.Topic = topic
		reg.byType[d.EventType] = d
	}
	return reg, nil
}

func (r *EventRegistry) Lookup(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	d, ok := r.byType[eventType]
	return d, ok
}

// Resolve checks the row against its descriptor and decodes the envelope and
// typed payload. Every failure is non-retryable: the stored bytes will not
// change between attempts.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	d, ok := r.byType[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("%w %s", ErrUnknownEvent, event.EventType)
	case d.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: %s belongs to %s, row has %s", event.EventType, d.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	payload := d.newPayload()
	if err := env.DecodeData(payload); err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: d, Envelope: env, Payload: payload}, nil
}
