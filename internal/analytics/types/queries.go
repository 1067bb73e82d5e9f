package types

import (
	"time"

	"github.com/google/uuid"
)

// MarketplaceQueryRequest selects a reporting window, optionally narrowed to
// one farmer.
type MarketplaceQueryRequest struct {
	FarmerID *uuid.UUID
	Start    time.Time
	End      time.Time
}

// TimeSeriesPoint is one day of a KPI series.
type TimeSeriesPoint struct {
	Date  string  `json:"date" bigquery:"day"`
	Value float64 `json:"value" bigquery:"value"`
}

// LabelValue is a ranked entry such as a top farmer.
type LabelValue struct {
	Label string  `json:"label" bigquery:"label"`
	Value float64 `json:"value" bigquery:"value"`
}

// MarketplaceQueryResponse carries the marketplace dashboard KPIs.
type MarketplaceQueryResponse struct {
	ListingsPosted    []TimeSeriesPoint `json:"listings_posted"`
	ListingsClaimed   []TimeSeriesPoint `json:"listings_claimed"`
	PaymentsCollected []TimeSeriesPoint `json:"payments_collected"`
	DeliveredKg       []TimeSeriesPoint `json:"delivered_kg"`
	TopFarmers        []LabelValue      `json:"top_farmers"`
	PaymentMethods    []LabelValue      `json:"payment_methods"`
	AveragePricePerKg float64           `json:"average_price_per_kg"`
	FailedPayments    int64             `json:"failed_payments"`
	OverdueNotices    int64             `json:"overdue_notices"`
}
