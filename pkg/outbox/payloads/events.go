package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// ListingPostedEvent is emitted when a farmer lists stock for sale.
type ListingPostedEvent struct {
	SellID         uuid.UUID       `json:"sell_id"`
	FarmerID       uuid.UUID       `json:"farmer_id"`
	HarvestStockID uuid.UUID       `json:"harvest_stock_id"`
	QuantityKg     decimal.Decimal `json:"quantity_kg"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DeliveryDays   int             `json:"delivery_days"`
	PostedAt       time.Time       `json:"posted_at"`
}

// ListingClaimedEvent is emitted when a buyer claims a posted listing.
type ListingClaimedEvent struct {
	SellID      uuid.UUID       `json:"sell_id"`
	PurchaseID  uuid.UUID       `json:"purchase_id"`
	FarmerID    uuid.UUID       `json:"farmer_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	QuantityKg  decimal.Decimal `json:"quantity_kg"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ClaimedAt   time.Time       `json:"claimed_at"`
}

// ListingPaymentRecordedEvent is emitted for every completed payment.
type ListingPaymentRecordedEvent struct {
	SellID        uuid.UUID                  `json:"sell_id"`
	PaymentID     uuid.UUID                  `json:"payment_id"`
	PurchaseID    *uuid.UUID                 `json:"purchase_id,omitempty"`
	Amount        decimal.Decimal            `json:"amount"`
	AmountPaid    decimal.Decimal            `json:"amount_paid"`
	TotalAmount   decimal.Decimal            `json:"total_amount"`
	Method        enums.PaymentMethod        `json:"payment_method"`
	PaymentStatus enums.ListingPaymentStatus `json:"payment_status"`
	RecordedAt    time.Time                  `json:"recorded_at"`
}

// ListingPaidEvent is emitted once, when a listing first becomes fully paid.
type ListingPaidEvent struct {
	SellID       uuid.UUID       `json:"sell_id"`
	FarmerID     uuid.UUID       `json:"farmer_id"`
	BuyerID      uuid.UUID       `json:"buyer_id"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PaidAt       time.Time       `json:"paid_at"`
	DeliveryDate time.Time       `json:"delivery_date"`
}

// ListingCompletedEvent is emitted when goods are delivered and stock leaves.
type ListingCompletedEvent struct {
	SellID      uuid.UUID       `json:"sell_id"`
	FarmerID    uuid.UUID       `json:"farmer_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	QuantityKg  decimal.Decimal `json:"quantity_kg"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CompletedAt time.Time       `json:"completed_at"`
}

// ListingCancelledEvent is emitted when an unpaid listing is cancelled.
type ListingCancelledEvent struct {
	SellID      uuid.UUID  `json:"sell_id"`
	FarmerID    uuid.UUID  `json:"farmer_id"`
	BuyerID     *uuid.UUID `json:"buyer_id,omitempty"`
	CancelledAt time.Time  `json:"cancelled_at"`
}

// ListingReleasedEvent is emitted when a buyer drops an unpaid purchase and
// the listing goes back on the market.
type ListingReleasedEvent struct {
	SellID     uuid.UUID `json:"sell_id"`
	PurchaseID uuid.UUID `json:"purchase_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	ReleasedAt time.Time `json:"released_at"`
}

// PaymentFailedEvent is emitted when the gateway rejects or cannot be reached.
type PaymentFailedEvent struct {
	PaymentID  uuid.UUID           `json:"payment_id"`
	PurchaseID uuid.UUID           `json:"purchase_id"`
	SellID     uuid.UUID           `json:"sell_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Method     enums.PaymentMethod `json:"payment_method"`
	Reason     string              `json:"reason"`
	GatewayRef *string             `json:"gateway_ref,omitempty"`
	FailedAt   time.Time           `json:"failed_at"`
}

// DeliveryOverdueEvent is emitted at most once per listing per day.
type DeliveryOverdueEvent struct {
	SellID       uuid.UUID `json:"sell_id"`
	FarmerID     uuid.UUID `json:"farmer_id"`
	BuyerID      uuid.UUID `json:"buyer_id"`
	DeliveryDate time.Time `json:"delivery_date"`
	DaysOverdue  int       `json:"days_overdue"`
	DetectedAt   time.Time `json:"detected_at"`
}
