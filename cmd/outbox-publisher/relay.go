package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/registry"
)

const (
	fallbackBatch       = 50
	fallbackPoll        = 500 * time.Millisecond
	fallbackMaxAttempts = 10
	publishDeadline     = 15 * time.Second
	backoffCeiling      = 10 * time.Second
	jitterSpread        = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicClient interface {
	Ping(context.Context) error
	EnsureTopic(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

type outboxStore interface {
	Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	Published(tx *gorm.DB, id uuid.UUID) error
	Failed(tx *gorm.DB, id uuid.UUID, cause error) error
	DeadLetter(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, maxAttempts int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type outcomeRecorder interface {
	IncPublished(eventType string)
	IncRetry(eventType string)
	IncDeadLetter(eventType string)
}

type RelayParams struct {
	Outbox   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	PubSub   topicClient
	Store    outboxStore
	Registry resolver
	Metrics  outcomeRecorder
	// Open overrides how a topic publisher is created. Tests use it.
	Open func(topic string) publisher
}

// Relay moves committed outbox rows to Pub/Sub. A row is published, retried
// on a later batch, or dead-lettered; its bookkeeping commits with the batch.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	pubsub      topicClient
	store       outboxStore
	registry    resolver
	metrics     outcomeRecorder
	publishers  *publisherCache
	batch       int
	maxAttempts int
	poll        time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	for _, dep := range []struct {
		name    string
		missing bool
	}{
		{"logger", p.Logger == nil},
		{"database", p.DB == nil},
		{"pubsub client", p.PubSub == nil},
		{"outbox store", p.Store == nil},
		{"event registry", p.Registry == nil},
		{"metrics", p.Metrics == nil},
	} {
		if dep.missing {
			return nil, fmt.Errorf("outbox relay: %s is required", dep.name)
		}
	}
	open := p.Open
	if open == nil {
		open = func(topic string) publisher { return newOrderedPublisher(p.PubSub.Publisher(topic)) }
	}
	poll := fallbackPoll
	if p.Outbox.PollIntervalMS > 0 {
		poll = time.Duration(p.Outbox.PollIntervalMS) * time.Millisecond
	}
	return &Relay{
		logg:        p.Logger,
		db:          p.DB,
		pubsub:      p.PubSub,
		store:       p.Store,
		registry:    p.Registry,
		metrics:     p.Metrics,
		publishers:  &publisherCache{open: open, byTopic: map[string]publisher{}},
		batch:       cmp.Or(max(p.Outbox.BatchSize, 0), fallbackBatch),
		maxAttempts: cmp.Or(max(p.Outbox.MaxAttempts, 0), fallbackMaxAttempts),
		poll:        poll,
	}, nil
}

// preflight refuses to start when the database or the domain topic is
// unreachable.
func (r *Relay) preflight(ctx context.Context) error {
	for _, dep := range []struct {
		name  string
		check func(context.Context) error
	}{
		{"database", r.db.Ping},
		{"pubsub", r.pubsub.Ping},
		{"domain topic", r.pubsub.EnsureTopic},
	} {
		if err := dep.check(ctx); err != nil {
			r.logg.Error(r.logg.WithField(ctx, "dependency", dep.name), "outbox relay preflight failed", err)
			return fmt.Errorf("%s unavailable: %w", dep.name, err)
		}
	}
	return nil
}

// Run relays until ctx ends. A batch that claimed rows is followed at once
// by the next; an empty poll sleeps the poll interval; a failed batch backs
// off exponentially up to backoffCeiling.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.preflight(ctx); err != nil {
		return err
	}
	defer r.publishers.stopAll()

	delay := r.poll
	for ctx.Err() == nil {
		claimed, err := r.relayBatch(ctx)
		switch {
		case err != nil:
			delay = min(max(delay, r.poll)*2, backoffCeiling)
			r.logg.Error(r.logg.WithField(ctx, "retry_in_ms", delay.Milliseconds()), "outbox relay batch failed", err)
		case claimed > 0:
			delay = r.poll
			continue
		default:
			delay = r.poll
		}
		if err := pause(ctx, delay+rand.N(jitterSpread)); err != nil {
			break
		}
	}
	r.logg.Info(ctx, "outbox relay stopping")
	return ctx.Err()
}

type outcome string

const (
	published  outcome = "published"
	retried    outcome = "retry"
	deadLetter outcome = "dead_letter"
)

// relayBatch claims up to batch rows and settles each inside one
// transaction. It returns how many rows it claimed.
func (r *Relay) relayBatch(ctx context.Context) (int, error) {
	var claimed int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.Claim(tx, r.batch, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(rows)
		if claimed == 0 {
			return nil
		}
		tally := make(map[outcome]int, 3)
		for _, row := range rows {
			result, err := r.settle(ctx, tx, row)
			if err != nil {
				return err
			}
			tally[result]++
			r.record(row.EventType, result)
		}
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"claimed":      claimed,
			"published":    tally[published],
			"retried":      tally[retried],
			"dead_letters": tally[deadLetter],
		}), "outbox batch relayed")
		return nil
	})
	return claimed, err
}

// settle publishes one row and books the outcome. Only bookkeeping failures
// are returned, and they roll back the whole batch.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (outcome, error) {
	fields := rowFields(row)
	resolved, err := r.registry.Resolve(row)
	if err != nil {
		reason := enums.OutboxDLQReasonNonRetryable
		if errors.Is(err, registry.ErrUnknownEvent) {
			reason = enums.OutboxDLQReasonUnknownEvent
		}
		return deadLetter, r.bury(ctx, tx, row, reason, err, fields)
	}
	fields["topic"] = resolved.Descriptor.Topic
	fields["event_id"] = resolved.Envelope.EventID

	sendErr := r.send(ctx, row, resolved)
	if sendErr == nil {
		if err := r.store.Published(tx, row.ID); err != nil {
			return published, fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.logg.Debug(r.logg.WithFields(ctx, fields), "outbox row published")
		return published, nil
	}

	var permanent registry.NonRetryableError
	if errors.As(sendErr, &permanent) {
		return deadLetter, r.bury(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, sendErr, fields)
	}
	attempt := row.AttemptCount + 1
	fields["attempt"] = attempt
	if attempt >= r.maxAttempts {
		return deadLetter, r.bury(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", attempt, sendErr), fields)
	}

	fields["error"] = sendErr.Error()
	r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox publish failed, will retry")
	if err := r.store.Failed(tx, row.ID, sendErr); err != nil {
		return retried, fmt.Errorf("record %s failure: %w", row.ID, err)
	}
	return retried, nil
}

func (r *Relay) bury(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["dlq_reason"] = reason
	fields["error"] = cause.Error()
	r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox row dead-lettered")
	if err := r.store.DeadLetter(tx, row, reason, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) record(eventType enums.OutboxEventType, result outcome) {
	switch result {
	case published:
		r.metrics.IncPublished(string(eventType))
	case retried:
		r.metrics.IncRetry(string(eventType))
	case deadLetter:
		r.metrics.IncDeadLetter(string(eventType))
	}
}

// send publishes the stored envelope bytes unchanged, ordered by aggregate
// so one listing's events arrive in commit order.
func (r *Relay) send(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := r.publishers.get(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}
	ctx, cancel := context.WithTimeout(ctx, publishDeadline)
	defer cancel()

	res := pub.Publish(ctx, message(row, resolved))
	if res == nil {
		return registry.NewNonRetryableError(fmt.Errorf("topic %s returned no publish result", topic))
	}
	_, err := res.Get(ctx)
	return err
}

func message(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	aggregateID := row.AggregateID.String()
	return &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: aggregateID,
		Attributes: map[string]string{
			"event_id":        resolved.Envelope.EventID,
			"event_type":      string(row.EventType),
			"aggregate_type":  string(row.AggregateType),
			"aggregate_id":    aggregateID,
			"payload_version": strconv.Itoa(resolved.Envelope.Version),
			"created_at":      row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func rowFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate":     string(row.AggregateType) + "/" + row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
