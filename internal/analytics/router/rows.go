package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/writer"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/payloads"
)

// newRow fills the columns every event shares. The event's own timestamp
// wins over the envelope's when present; the raw payload is stored as-is.
func newRow(env types.Envelope, sellID uuid.UUID, at time.Time) (types.MarketplaceEventRow, error) {
	if at.IsZero() {
		at = env.OccurredAt
	}
	payload, err := writer.EncodeJSON(env.Payload)
	if err != nil {
		return types.MarketplaceEventRow{}, fmt.Errorf("encode payload: %w", err)
	}
	return types.MarketplaceEventRow{
		EventID:    env.EventID,
		EventType:  string(env.EventType),
		OccurredAt: at.UTC(),
		SellID:     sellID.String(),
		ActorRole:  text(env.ActorRole),
		Payload:    payload,
	}, nil
}

func listingPostedRow(env types.Envelope, e *payloads.ListingPostedEvent) (types.MarketplaceEventRow, error) {
	row, err := newRow(env, e.SellID, e.PostedAt)
	row.FarmerID = id(e.FarmerID)
	row.QuantityKg = amount(e.QuantityKg)
	row.UnitPrice = amount(e.UnitPrice)
	row.TotalAmount = amount(e.TotalAmount)
	row.DeliveryDays = ptr(int64(e.DeliveryDays))
	return row, err
}

func listingClaimedRow(env types.Envelope, e *payloads.ListingClaimedEvent) (types.MarketplaceEventRow, error) {
	row, err := newRow(env, e.SellID, e.ClaimedAt)
	row.PurchaseID = id(e.PurchaseID)
	row.FarmerID = id(e.FarmerID)
	row.BuyerID = id(e.BuyerID)
	row.QuantityKg = amount(e.QuantityKg)
	row.TotalAmount = amount(e.TotalAmount)
	return row, err
}

func paymentRecordedRow(env types.Envelope, e *payloads.ListingPaymentRecordedEvent) (types.MarketplaceEventRow, error) {
	row, err := newRow(env, e.SellID, e.RecordedAt)
	row.PurchaseID = optionalID(e.PurchaseID)
	row.PaymentID = id(e.PaymentID)
	row.Amount = amount(e.Amount)
	row.AmountPaid = amount(e.AmountPaid)
	row.TotalAmount = amount(e.TotalAmount)
	row.PaymentMethod = text(string(e.Method))
	row.PaymentStatus = text(string(e.PaymentStatus))
	return row, err
}

// A paid listing has, by definition, collected its whole total.
func listingPaidRow(env types.Envelope, e *payloads.ListingPaidEvent) (types.MarketplaceEventRow, error) {
	row, err := newRow(env, e.SellID, e.PaidAt)
	row.FarmerID = id(e.FarmerID)
	row.BuyerID = id(e.BuyerID)
	row.TotalAmount = amount(e.TotalAmount)
	row.AmountPaid = amount(e.TotalAmount)
	return row, err
}

func listingCompletedRow(env types.Envelope, e *payloads.ListingCompletedEvent) (types.MarketplaceEventRow, error) {
	row, err := newRow(env, e.SellID, e.CompletedAt)
	row.FarmerID = id(e.FarmerID)
	row.BuyerID = id(e.BuyerID)
	row.QuantityKg = amount(e.QuantityKg)
	row.TotalAmount = amount(e.TotalAmount)
	return row, err
}

func listingCancelledRow(env types.Envelope, e *payloads.ListingCancelledEvent) (types.MarketplaceEventRow, error) {
	row, err := newRow(env, e.SellID, e.CancelledAt)
	row.FarmerID = id(e.FarmerID)
	row.BuyerID = optionalID(e.BuyerID)
	return row, err
}

func listingReleasedRow(env types.Envelope, e *payloads.ListingReleasedEvent) (types.MarketplaceEventRow, error) {
	row, err := newRow(env, e.SellID, e.ReleasedAt)
	row.PurchaseID = id(e.PurchaseID)
	row.BuyerID = id(e.BuyerID)
	return row, err
}

func paymentFailedRow(env types.Envelope, e *payloads.PaymentFailedEvent) (types.MarketplaceEventRow, error) {
	row, err := newRow(env, e.SellID, e.FailedAt)
	row.PurchaseID = id(e.PurchaseID)
	row.PaymentID = id(e.PaymentID)
	row.Amount = amount(e.Amount)
	row.PaymentMethod = text(string(e.Method))
	row.Reason = text(e.Reason)
	return row, err
}

func deliveryOverdueRow(env types.Envelope, e *payloads.DeliveryOverdueEvent) (types.MarketplaceEventRow, error) {
	row, err := newRow(env, e.SellID, e.DetectedAt)
	row.FarmerID = id(e.FarmerID)
	row.BuyerID = id(e.BuyerID)
	row.DaysOverdue = ptr(int64(e.DaysOverdue))
	return row, err
}

// Nullable column helpers. BigQuery NULLs are nil pointers.

func ptr[T any](v T) *T { return &v }

func text(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func id(u uuid.UUID) *string {
	if u == uuid.Nil {
		return nil
	}
	return ptr(u.String())
}

func optionalID(u *uuid.UUID) *string {
	if u == nil {
		return nil
	}
	return id(*u)
}

// amount maps money and weights onto FLOAT64 columns.
func amount(d decimal.Decimal) *float64 {
	return ptr(d.InexactFloat64())
}
