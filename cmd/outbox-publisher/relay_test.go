package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/registry"
)

const domainTopic = "sunflower-domain"

var errTransient = errors.New("deadline exceeded")

type harness struct {
	relay  *Relay
	store  *memStore
	topic  *topicRecorder
	res    *staticResolver
	counts *outcomeCounts
	opened []string
	pubsub *pubsubStub
}

func newHarness(t *testing.T, cfg config.OutboxConfig, rows ...models.OutboxEvent) *harness {
	t.Helper()
	h := &harness{
		store:  &memStore{rows: rows},
		topic:  &topicRecorder{},
		res:    &staticResolver{},
		counts: &outcomeCounts{},
		pubsub: &pubsubStub{},
	}
	relay, err := NewRelay(RelayParams{
		Outbox:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "outbox-relay-test", Output: io.Discard}),
		DB:       txStub{},
		PubSub:   h.pubsub,
		Store:    h.store,
		Registry: h.res,
		Metrics:  h.counts,
		Open: func(topic string) publisher {
			h.opened = append(h.opened, topic)
			return h.topic
		},
	})
	require.NoError(t, err)
	h.relay = relay
	return h
}

func pendingRow(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: enums.AggregateSell,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestNewRelayDefaults(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{BatchSize: -3})
	assert.Equal(t, fallbackBatch, h.relay.batch)
	assert.Equal(t, fallbackMaxAttempts, h.relay.maxAttempts)
	assert.Equal(t, fallbackPoll, h.relay.poll)

	_, err := NewRelay(RelayParams{})
	assert.ErrorContains(t, err, "logger is required")
}

func TestRelayBatchRetriesFailureAndPublishesRest(t *testing.T) {
	first := pendingRow(t, enums.EventListingPosted, 0)
	second := pendingRow(t, enums.EventListingClaimed, 0)
	h := newHarness(t, config.OutboxConfig{MaxAttempts: 5}, first, second)
	h.topic.errs = []error{errTransient, nil}

	claimed, err := h.relay.relayBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, claimed)

	assert.Equal(t, []uuid.UUID{first.ID}, h.store.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, h.store.published)
	assert.Equal(t, outcomeCounts{published: 1, retry: 1}, *h.counts)
}

func TestMessageCarriesEnvelopeAndRouting(t *testing.T) {
	row := pendingRow(t, enums.EventListingPaid, 0)
	h := newHarness(t, config.OutboxConfig{}, row)

	_, err := h.relay.relayBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, h.topic.sent, 1)
	msg := h.topic.sent[0]
	assert.Equal(t, []byte(row.Payload), msg.Data)
	assert.Equal(t, row.AggregateID.String(), msg.OrderingKey)
	assert.Equal(t, map[string]string{
		"event_id":        row.ID.String(),
		"event_type":      string(enums.EventListingPaid),
		"aggregate_type":  string(enums.AggregateSell),
		"aggregate_id":    row.AggregateID.String(),
		"payload_version": "1",
		"created_at":      row.CreatedAt.Format(time.RFC3339Nano),
	}, msg.Attributes)
	assert.Equal(t, []string{domainTopic}, h.opened)
}

func TestPublisherOpenedOncePerTopic(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{}, pendingRow(t, enums.EventListingPosted, 0))

	for range 3 {
		_, err := h.relay.relayBatch(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, h.opened, 1)

	h.relay.publishers.stopAll()
	assert.True(t, h.topic.stopped)
	assert.Empty(t, h.relay.publishers.byTopic)
}

func TestResolveFailuresAreDeadLettered(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason enums.OutboxDLQErrorReason
	}{
		{"bad payload", registry.NewNonRetryableError(errors.New("decode envelope")), enums.OutboxDLQReasonNonRetryable},
		{"unknown type", registry.NewNonRetryableError(fmt.Errorf("%w listing_teleported", registry.ErrUnknownEvent)), enums.OutboxDLQReasonUnknownEvent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := pendingRow(t, enums.EventListingCompleted, 0)
			h := newHarness(t, config.OutboxConfig{MaxAttempts: 7}, row)
			h.res.err = tc.err

			_, err := h.relay.relayBatch(context.Background())
			require.NoError(t, err)

			require.Len(t, h.store.buried, 1)
			assert.Equal(t, row.ID, h.store.buried[0].id)
			assert.Equal(t, tc.reason, h.store.buried[0].reason)
			assert.Equal(t, 7, h.store.buried[0].pin)
			assert.Empty(t, h.topic.sent)
			assert.Equal(t, 1, h.counts.deadLetter)
		})
	}
}

func TestLastAttemptIsDeadLettered(t *testing.T) {
	row := pendingRow(t, enums.EventPaymentFailed, 1)
	h := newHarness(t, config.OutboxConfig{MaxAttempts: 2}, row)
	h.topic.errs = []error{errTransient}

	_, err := h.relay.relayBatch(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.store.failed)
	require.Len(t, h.store.buried, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, h.store.buried[0].reason)
	assert.ErrorIs(t, h.store.buried[0].cause, errTransient)
}

func TestMissingPublisherIsPermanent(t *testing.T) {
	row := pendingRow(t, enums.EventListingPosted, 0)
	h := newHarness(t, config.OutboxConfig{}, row)
	h.relay.publishers.open = func(string) publisher { return nil }

	_, err := h.relay.relayBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, h.store.buried, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, h.store.buried[0].reason)
}

func TestBookkeepingFailureAbortsBatch(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{}, pendingRow(t, enums.EventListingPosted, 0))
	h.store.markErr = errors.New("connection reset")

	_, err := h.relay.relayBatch(context.Background())
	assert.ErrorIs(t, err, h.store.markErr)
}

func TestEmptyBatch(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{})
	claimed, err := h.relay.relayBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, claimed)
}

func TestRunStopsOnPreflightFailure(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{})
	h.pubsub.topicErr = errors.New("topic not found")

	err := h.relay.Run(context.Background())
	assert.ErrorContains(t, err, "domain topic unavailable")
}

func TestRunReturnsWhenCancelled(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{PollIntervalMS: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, h.relay.Run(ctx), context.DeadlineExceeded)
	assert.Greater(t, h.store.claims, 1)
}

type txStub struct{}

func (txStub) Ping(context.Context) error { return nil }

func (txStub) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type pubsubStub struct {
	topicErr error
}

func (p *pubsubStub) Ping(context.Context) error { return nil }

func (p *pubsubStub) EnsureTopic(context.Context) error { return p.topicErr }

func (p *pubsubStub) Publisher(string) *gcppubsub.Publisher { return nil }

type buried struct {
	id     uuid.UUID
	reason enums.OutboxDLQErrorReason
	cause  error
	pin    int
}

type memStore struct {
	rows      []models.OutboxEvent
	claims    int
	published []uuid.UUID
	failed    []uuid.UUID
	buried    []buried
	markErr   error
}

func (m *memStore) Claim(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	m.claims++
	return m.rows[:min(limit, len(m.rows))], nil
}

func (m *memStore) Published(_ *gorm.DB, id uuid.UUID) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.published = append(m.published, id)
	return nil
}

func (m *memStore) Failed(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memStore) DeadLetter(_ *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, pin int) error {
	m.buried = append(m.buried, buried{id: row.ID, reason: reason, cause: cause, pin: pin})
	return nil
}

type staticResolver struct {
	err error
}

func (s *staticResolver) Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, registry.NewNonRetryableError(err)
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: row.EventType, AggregateType: row.AggregateType, Topic: domainTopic},
		Envelope:   env,
	}, nil
}

// topicRecorder fails publishes in the order given by errs, then succeeds.
type topicRecorder struct {
	sent    []*gcppubsub.Message
	errs    []error
	stopped bool
}

func (r *topicRecorder) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	r.sent = append(r.sent, msg)
	var err error
	if len(r.errs) > 0 {
		err, r.errs = r.errs[0], r.errs[1:]
	}
	return staticResult{err: err}
}

func (r *topicRecorder) Stop() { r.stopped = true }

type staticResult struct {
	err error
}

func (s staticResult) Get(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "msg-1", nil
}

type outcomeCounts struct {
	published  int
	retry      int
	deadLetter int
}

func (o *outcomeCounts) IncPublished(string)  { o.published++ }
func (o *outcomeCounts) IncRetry(string)      { o.retry++ }
func (o *outcomeCounts) IncDeadLetter(string) { o.deadLetter++ }
