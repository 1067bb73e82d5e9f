package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/delivery"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/payloads"
)

const consumerName = "notifications"

// errSkipEvent marks event types that never produce a notice.
var errSkipEvent = errors.New("event does not notify")

type noticeWriter interface {
	CreateMany(ctx context.Context, notifications []models.Notification) error
}

// NewConsumer builds the consumer that turns marketplace domain events into
// in-app notices for the farmer and buyer involved.
func NewConsumer(repo noticeWriter, sub *gcppubsub.Subscriber, claims delivery.Claimer, logg *logger.Logger) (*delivery.Consumer, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	return delivery.New(delivery.Params{
		Name:         consumerName,
		Subscription: sub,
		Claims:       claims,
		Handler:      Handler(repo),
		Logger:       logg,
	})
}

// Handler stores the notices an event produces. Duplicate deliveries are
// filtered by the consumer claim and by the (event_id, user_id) index.
func Handler(repo noticeWriter) delivery.Handler {
	return func(ctx context.Context, ev delivery.Event) error {
		eventID, err := uuid.Parse(ev.EventID)
		if err != nil {
			return delivery.Permanent(fmt.Errorf("event id: %w", err))
		}
		notices, err := noticesFor(ev.EventType, eventID, ev.Data)
		switch {
		case errors.Is(err, errSkipEvent):
			return delivery.ErrSkip
		case err != nil:
			return delivery.Permanent(fmt.Errorf("decode %s payload: %w", ev.EventType, err))
		}
		if err := repo.CreateMany(ctx, notices); err != nil {
			return fmt.Errorf("store notices: %w", err)
		}
		return nil
	}
}

// noticesFor maps one domain event to the notices it produces.
func noticesFor(eventType enums.OutboxEventType, eventID uuid.UUID, data json.RawMessage) ([]models.Notification, error) {
	switch eventType {
	case enums.EventListingClaimed:
		var p payloads.ListingClaimedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return []models.Notification{
			notice(eventID, p.FarmerID, enums.NotificationListing, "Listing claimed",
				fmt.Sprintf("A buyer claimed %s kg from your listing for %s RWF.", p.QuantityKg.String(), p.TotalAmount.StringFixed(2)),
				sellLink(p.SellID)),
		}, nil

	case enums.EventListingPaid:
		var p payloads.ListingPaidEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		due := p.DeliveryDate.Format(dateLayout)
		return []models.Notification{
			notice(eventID, p.FarmerID, enums.NotificationPayment, "Listing fully paid",
				fmt.Sprintf("Payment of %s RWF is complete. Deliver by %s.", p.TotalAmount.StringFixed(2), due),
				sellLink(p.SellID)),
			notice(eventID, p.BuyerID, enums.NotificationPayment, "Payment complete",
				fmt.Sprintf("Your purchase is fully paid. Expected delivery on %s.", due),
				sellLink(p.SellID)),
		}, nil

	case enums.EventListingCompleted:
		var p payloads.ListingCompletedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return []models.Notification{
			notice(eventID, p.BuyerID, enums.NotificationDelivery, "Delivery completed",
				fmt.Sprintf("%s kg of sunflower was marked delivered.", p.QuantityKg.String()),
				sellLink(p.SellID)),
		}, nil

	case enums.EventListingCancelled:
		var p payloads.ListingCancelledEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.BuyerID == nil {
			return nil, errSkipEvent
		}
		return []models.Notification{
			notice(eventID, *p.BuyerID, enums.NotificationListing, "Listing cancelled",
				"A listing you claimed was cancelled by the farmer.",
				sellLink(p.SellID)),
		}, nil

	case enums.EventDeliveryOverdue:
		var p payloads.DeliveryOverdueEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		due := p.DeliveryDate.Format(dateLayout)
		return []models.Notification{
			notice(eventID, p.FarmerID, enums.NotificationDelivery, "Delivery overdue",
				fmt.Sprintf("Delivery was due on %s and is %d day(s) late.", due, p.DaysOverdue),
				sellLink(p.SellID)),
			notice(eventID, p.BuyerID, enums.NotificationDelivery, "Delivery overdue",
				fmt.Sprintf("Your delivery due on %s has not been completed yet.", due),
				sellLink(p.SellID)),
		}, nil

	default:
		return nil, errSkipEvent
	}
}

const dateLayout = "2006-01-02"

func notice(eventID, userID uuid.UUID, kind enums.NotificationType, title, message, link string) models.Notification {
	return models.Notification{
		UserID:  userID,
		EventID: eventID,
		Type:    kind,
		Title:   title,
		Message: message,
		Link:    &link,
	}
}

func sellLink(sellID uuid.UUID) string {
	return "/sells/" + sellID.String()
}
