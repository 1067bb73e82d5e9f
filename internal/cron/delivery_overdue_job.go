package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/payloads"
)

const (
	deliveryOverdueScope = "delivery_overdue"
	// Outlives the day it guards so a late rerun cannot re-notify.
	deliveryOverdueMarkTTL = 48 * time.Hour
)

// DeliveryOverdueJobParams configure the overdue delivery notifier.
type DeliveryOverdueJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Listings overdueListingReader
	Outbox   outboxEmitter
	Marker   onceMarker
}

type overdueListingReader interface {
	Overdue(ctx context.Context, before time.Time) ([]models.Sell, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type onceMarker interface {
	Claim(ctx context.Context, scope, id string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NewDeliveryOverdueJob builds the job that emits delivery.overdue for
// purchased listings past their delivery date, once per listing per day.
func NewDeliveryOverdueJob(params DeliveryOverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Marker == nil {
		return nil, fmt.Errorf("idempotency marker required")
	}
	return &deliveryOverdueJob{
		logg:     params.Logger,
		db:       params.DB,
		listings: params.Listings,
		outbox:   params.Outbox,
		marker:   params.Marker,
		now:      time.Now,
	}, nil
}

type deliveryOverdueJob struct {
	logg     *logger.Logger
	db       txRunner
	listings overdueListingReader
	outbox   outboxEmitter
	marker   onceMarker
	now      func() time.Time
}

func (j *deliveryOverdueJob) Name() string { return "delivery-overdue" }

func (j *deliveryOverdueJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := j.listings.Overdue(ctx, today)
	if err != nil {
		return fmt.Errorf("query overdue listings: %w", err)
	}

	var (
		errs    error
		emitted int
	)
	for i := range rows {
		sent, err := j.notify(ctx, &rows[i], today, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sell %s: %w", rows[i].ID, err))
			continue
		}
		if sent {
			emitted++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"overdue": len(rows),
		"emitted": emitted,
	})
	j.logg.Info(logCtx, "delivery overdue scan complete")
	return errs
}

func (j *deliveryOverdueJob) notify(ctx context.Context, sell *models.Sell, today, now time.Time) (bool, error) {
	if sell.DeliveryDate == nil {
		return false, nil
	}
	markID := sell.ID.String() + ":" + today.Format("2006-01-02")
	claimed, err := j.marker.Claim(ctx, deliveryOverdueScope, markID, deliveryOverdueMarkTTL)
	if err != nil {
		return false, fmt.Errorf("mark overdue notice: %w", err)
	}
	if !claimed {
		return false, nil
	}

	due := *sell.DeliveryDate
	due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	var buyerID uuid.UUID
	if sell.BuyerID != nil {
		buyerID = *sell.BuyerID
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryOverdue,
			AggregateType: enums.AggregateSell,
			AggregateID:   sell.ID,
			OccurredAt:    now,
			Data: payloads.DeliveryOverdueEvent{
				SellID:       sell.ID,
				FarmerID:     sell.FarmerID,
				BuyerID:      buyerID,
				DeliveryDate: due,
				DaysOverdue:  int(today.Sub(due).Hours() / 24),
				DetectedAt:   now,
			},
		})
	})
	if err != nil {
		if releaseErr := j.marker.Release(ctx, deliveryOverdueScope, markID); releaseErr != nil {
			err = multierr.Append(err, releaseErr)
		}
		return false, fmt.Errorf("emit overdue event: %w", err)
	}
	return true, nil
}
