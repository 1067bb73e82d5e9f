// Package router turns marketplace domain events into marketplace_events
// rows, one row per event.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/delivery"
)

// ErrUnsupportedEventType marks events the dashboard does not chart.
var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

type Writer interface {
	InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error
}

// Handler receives an envelope and its decoded payload, a pointer to the
// payloads struct for the event type.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type route struct {
	decode  func(json.RawMessage) (any, error)
	handler Handler
}

type Router struct {
	routes map[enums.OutboxEventType]route
}

// NewRouter routes every charted event to a row writer. overrides replaces
// the handler for an event type; unknown types in overrides are ignored.
func NewRouter(w Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if w == nil || logg == nil {
		return nil, errors.New("analytics router needs a writer and a logger")
	}
	routes := map[enums.OutboxEventType]route{
		enums.EventListingPosted:          rowRoute(w, logg, listingPostedRow),
		enums.EventListingClaimed:         rowRoute(w, logg, listingClaimedRow),
		enums.EventListingPaymentRecorded: rowRoute(w, logg, paymentRecordedRow),
		enums.EventListingPaid:            rowRoute(w, logg, listingPaidRow),
		enums.EventListingCompleted:       rowRoute(w, logg, listingCompletedRow),
		enums.EventListingCancelled:       rowRoute(w, logg, listingCancelledRow),
		enums.EventListingReleased:        rowRoute(w, logg, listingReleasedRow),
		enums.EventPaymentFailed:          rowRoute(w, logg, paymentFailedRow),
		enums.EventDeliveryOverdue:        rowRoute(w, logg, deliveryOverdueRow),
	}
	for eventType, h := range overrides {
		if r, ok := routes[eventType]; ok && h != nil {
			r.handler = h
			routes[eventType] = r
		}
	}
	return &Router{routes: routes}, nil
}

// Handle decodes the payload for the envelope's event type and runs its
// handler. Payloads that cannot be decoded fail permanently.
func (r *Router) Handle(ctx context.Context, env types.Envelope) error {
	rt, ok := r.routes[env.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, env.EventType)
	}
	if len(env.Payload) == 0 {
		return delivery.Permanent(fmt.Errorf("empty payload for %s", env.EventType))
	}
	payload, err := rt.decode(env.Payload)
	if err != nil {
		return delivery.Permanent(fmt.Errorf("decode %s payload: %w", env.EventType, err))
	}
	return rt.handler.Handle(ctx, env, payload)
}

// rowRoute decodes into P and writes the row build produces.
func rowRoute[P any](w Writer, logg *logger.Logger, build func(types.Envelope, *P) (types.MarketplaceEventRow, error)) route {
	return route{
		decode: func(raw json.RawMessage) (any, error) {
			p := new(P)
			return p, json.Unmarshal(raw, p)
		},
		handler: &rowWriter[P]{writer: w, logg: logg, build: build},
	}
}

type rowWriter[P any] struct {
	writer Writer
	logg   *logger.Logger
	build  func(types.Envelope, *P) (types.MarketplaceEventRow, error)
}

func (h *rowWriter[P]) Handle(ctx context.Context, env types.Envelope, payload any) error {
	event, ok := payload.(*P)
	if !ok {
		return delivery.Permanent(fmt.Errorf("%s: unexpected payload %T", env.EventType, payload))
	}
	ctx = h.logg.WithFields(ctx, map[string]any{
		"event_type":   env.EventType,
		"aggregate_id": env.AggregateID,
	})
	row, err := h.build(env, event)
	if err != nil {
		h.logg.Error(ctx, "build marketplace row failed", err)
		return err
	}
	if err := h.writer.InsertMarketplace(ctx, row); err != nil {
		h.logg.Error(ctx, "insert marketplace row failed", err)
		return err
	}
	h.logg.Debug(h.logg.WithField(ctx, "sell_id", row.SellID), "marketplace row queued")
	return nil
}
