package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateSell     OutboxAggregateType = "sell"
	AggregatePurchase OutboxAggregateType = "purchase"
	AggregatePayment  OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSell,
	AggregatePurchase,
	AggregatePayment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum(value, validAggregateTypes, "aggregate type")
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventListingPosted          OutboxEventType = "listing_posted"
	EventListingClaimed         OutboxEventType = "listing_claimed"
	EventListingPaymentRecorded OutboxEventType = "listing_payment_recorded"
	EventListingPaid            OutboxEventType = "listing_paid"
	EventListingCompleted       OutboxEventType = "listing_completed"
	EventListingCancelled       OutboxEventType = "listing_cancelled"
	EventListingReleased        OutboxEventType = "listing_released"
	EventPaymentFailed          OutboxEventType = "payment_failed"
	EventDeliveryOverdue        OutboxEventType = "delivery_overdue"
)

var validOutboxEventTypes = []OutboxEventType{
	EventListingPosted,
	EventListingClaimed,
	EventListingPaymentRecorded,
	EventListingPaid,
	EventListingCompleted,
	EventListingCancelled,
	EventListingReleased,
	EventPaymentFailed,
	EventDeliveryOverdue,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum(value, validOutboxEventTypes, "event type")
}
