package purchases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/payloads"
)

// RecordedPayment identifies the completed payment behind a sync.
type RecordedPayment struct {
	ID     uuid.UUID
	Amount decimal.Decimal
	Method enums.PaymentMethod
}

// EmitPaymentRecorded queues listing_payment_recorded and, on the first
// crossing into paid, listing_paid.
func EmitPaymentRecorded(ctx context.Context, emitter outbox.Emitter, tx *gorm.DB, actor auth.Actor, sell *models.Sell, purchase *models.Purchase, payment RecordedPayment, result SyncResult, now time.Time) error {
	var purchaseID *uuid.UUID
	if purchase != nil {
		id := purchase.ID
		purchaseID = &id
	}
	err := emit(ctx, emitter, tx, actor, enums.EventListingPaymentRecorded, sell.ID, now, payloads.ListingPaymentRecordedEvent{
		SellID:        sell.ID,
		PaymentID:     payment.ID,
		PurchaseID:    purchaseID,
		Amount:        payment.Amount,
		AmountPaid:    result.AmountPaid,
		TotalAmount:   sell.TotalAmount,
		Method:        payment.Method,
		PaymentStatus: result.PaymentStatus,
		RecordedAt:    now.UTC(),
	})
	if err != nil || !result.BecamePaid {
		return err
	}

	event := payloads.ListingPaidEvent{
		SellID:      sell.ID,
		FarmerID:    sell.FarmerID,
		TotalAmount: sell.TotalAmount,
		PaidAt:      now.UTC(),
	}
	if sell.BuyerID != nil {
		event.BuyerID = *sell.BuyerID
	}
	if sell.DeliveryDate != nil {
		event.DeliveryDate = *sell.DeliveryDate
	}
	return emit(ctx, emitter, tx, actor, enums.EventListingPaid, sell.ID, now, event)
}

// EmitClaimed queues listing_claimed.
func EmitClaimed(ctx context.Context, emitter outbox.Emitter, tx *gorm.DB, actor auth.Actor, sell *models.Sell, purchase *models.Purchase, now time.Time) error {
	return emit(ctx, emitter, tx, actor, enums.EventListingClaimed, sell.ID, now, payloads.ListingClaimedEvent{
		SellID:      sell.ID,
		PurchaseID:  purchase.ID,
		FarmerID:    sell.FarmerID,
		BuyerID:     purchase.BuyerID,
		QuantityKg:  sell.QuantitySold,
		TotalAmount: sell.TotalAmount,
		ClaimedAt:   now.UTC(),
	})
}

// EmitCompleted queues listing_completed.
func EmitCompleted(ctx context.Context, emitter outbox.Emitter, tx *gorm.DB, actor auth.Actor, sell *models.Sell, now time.Time) error {
	event := payloads.ListingCompletedEvent{
		SellID:      sell.ID,
		FarmerID:    sell.FarmerID,
		QuantityKg:  sell.QuantitySold,
		TotalAmount: sell.TotalAmount,
		CompletedAt: now.UTC(),
	}
	if sell.BuyerID != nil {
		event.BuyerID = *sell.BuyerID
	}
	return emit(ctx, emitter, tx, actor, enums.EventListingCompleted, sell.ID, now, event)
}

// EmitCancelled queues listing_cancelled.
func EmitCancelled(ctx context.Context, emitter outbox.Emitter, tx *gorm.DB, actor auth.Actor, sell *models.Sell, now time.Time) error {
	return emit(ctx, emitter, tx, actor, enums.EventListingCancelled, sell.ID, now, payloads.ListingCancelledEvent{
		SellID:      sell.ID,
		FarmerID:    sell.FarmerID,
		BuyerID:     sell.BuyerID,
		CancelledAt: now.UTC(),
	})
}

func emit(ctx context.Context, emitter outbox.Emitter, tx *gorm.DB, actor auth.Actor, eventType enums.OutboxEventType, aggregateID uuid.UUID, now time.Time, data any) error {
	aggregate := enums.AggregateSell
	switch eventType {
	case enums.EventPaymentFailed:
		aggregate = enums.AggregatePayment
	case enums.EventListingReleased:
		aggregate = enums.AggregatePurchase
	}
	err := emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		Actor:         outbox.Actor(actor.UserID, actor.Role),
		Data:          data,
		OccurredAt:    now.UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue "+string(eventType))
	}
	return nil
}

// EmitPosted queues listing_posted.
func EmitPosted(ctx context.Context, emitter outbox.Emitter, tx *gorm.DB, actor auth.Actor, sell *models.Sell, now time.Time) error {
	return emit(ctx, emitter, tx, actor, enums.EventListingPosted, sell.ID, now, payloads.ListingPostedEvent{
		SellID:         sell.ID,
		FarmerID:       sell.FarmerID,
		HarvestStockID: sell.HarvestStockID,
		QuantityKg:     sell.QuantitySold,
		UnitPrice:      sell.UnitPrice,
		TotalAmount:    sell.TotalAmount,
		DeliveryDays:   sell.DeliveryDays,
		PostedAt:       now.UTC(),
	})
}
