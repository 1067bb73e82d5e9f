package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/delivery"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/payloads"
)

// noticeSink records what the handler would have stored.
type noticeSink struct {
	created   []models.Notification
	createErr error
}

func (s *noticeSink) CreateMany(_ context.Context, notices []models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, notices...)
	return nil
}

func deliveredEvent(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) delivery.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return delivery.Event{
		MessageID:     "msg-1",
		EventID:       eventID.String(),
		EventType:     eventType,
		AggregateType: enums.AggregateSell,
		AggregateID:   uuid.NewString(),
		OccurredAt:    time.Now().UTC(),
		Data:          raw,
	}
}

func TestHandlerNotifiesBothPartiesWhenOverdue(t *testing.T) {
	repo := &noticeSink{}
	eventID := uuid.New()
	event := payloads.DeliveryOverdueEvent{
		SellID:       uuid.New(),
		FarmerID:     uuid.New(),
		BuyerID:      uuid.New(),
		DeliveryDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		DaysOverdue:  3,
	}

	if err := Handler(repo)(context.Background(), deliveredEvent(t, enums.EventDeliveryOverdue, eventID, event)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(repo.created))
	}
	if repo.created[0].UserID != event.FarmerID || repo.created[1].UserID != event.BuyerID {
		t.Fatalf("unexpected recipients %+v", repo.created)
	}
	for _, n := range repo.created {
		if n.EventID != eventID || n.Type != enums.NotificationDelivery {
			t.Fatalf("unexpected notice %+v", n)
		}
		if n.Link == nil || *n.Link != "/sells/"+event.SellID.String() {
			t.Fatalf("unexpected link %v", n.Link)
		}
	}
	if got := repo.created[0].Message; got != "Delivery was due on 2026-06-01 and is 3 day(s) late." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestHandlerFormatsClaimAmounts(t *testing.T) {
	repo := &noticeSink{}
	ev := deliveredEvent(t, enums.EventListingClaimed, uuid.New(), payloads.ListingClaimedEvent{
		SellID:      uuid.New(),
		FarmerID:    uuid.New(),
		BuyerID:     uuid.New(),
		QuantityKg:  decimal.NewFromInt(500),
		TotalAmount: decimal.NewFromInt(400000),
	})

	if err := Handler(repo)(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected single notice, got %d", len(repo.created))
	}
	if repo.created[0].Message != "A buyer claimed 500 kg from your listing for 400000.00 RWF." {
		t.Fatalf("unexpected message %q", repo.created[0].Message)
	}
}

func TestHandlerSkipsEventsWithoutNotices(t *testing.T) {
	repo := &noticeSink{}
	handle := Handler(repo)

	posted := deliveredEvent(t, enums.EventListingPosted, uuid.New(), payloads.ListingPostedEvent{SellID: uuid.New()})
	if err := handle(context.Background(), posted); !errors.Is(err, delivery.ErrSkip) {
		t.Fatalf("expected skip for posted listing, got %v", err)
	}
	unclaimed := deliveredEvent(t, enums.EventListingCancelled, uuid.New(), payloads.ListingCancelledEvent{SellID: uuid.New(), FarmerID: uuid.New()})
	if err := handle(context.Background(), unclaimed); !errors.Is(err, delivery.ErrSkip) {
		t.Fatalf("expected skip for unclaimed cancellation, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no notices, got %d", len(repo.created))
	}
}

func TestHandlerDropsUndecodablePayloads(t *testing.T) {
	handle := Handler(&noticeSink{})

	bad := deliveredEvent(t, enums.EventListingPaid, uuid.New(), nil)
	bad.Data = json.RawMessage("{")
	if err := handle(context.Background(), bad); !delivery.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}

	badID := deliveredEvent(t, enums.EventListingPaid, uuid.New(), payloads.ListingPaidEvent{})
	badID.EventID = "not-a-uuid"
	if err := handle(context.Background(), badID); !delivery.IsPermanent(err) {
		t.Fatalf("expected permanent error for bad event id, got %v", err)
	}
}

func TestHandlerRetriesWriteFailures(t *testing.T) {
	repo := &noticeSink{createErr: errors.New("db down")}
	ev := deliveredEvent(t, enums.EventListingPaid, uuid.New(), payloads.ListingPaidEvent{
		SellID:       uuid.New(),
		FarmerID:     uuid.New(),
		BuyerID:      uuid.New(),
		TotalAmount:  decimal.NewFromInt(1000),
		DeliveryDate: time.Now(),
	})

	err := Handler(repo)(context.Background(), ev)
	if err == nil || delivery.IsPermanent(err) || errors.Is(err, delivery.ErrSkip) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}
