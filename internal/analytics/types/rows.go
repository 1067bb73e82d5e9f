package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	pkgbigquery "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bigquery"
)

// MarketplaceEventRow mirrors the marketplace_events BigQuery schema. One row
// is written per listing lifecycle event; columns that do not apply stay NULL.
type MarketplaceEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	SellID        string             `bigquery:"sell_id"`
	PurchaseID    *string            `bigquery:"purchase_id"`
	PaymentID     *string            `bigquery:"payment_id"`
	FarmerID      *string            `bigquery:"farmer_id"`
	BuyerID       *string            `bigquery:"buyer_id"`
	ActorRole     *string            `bigquery:"actor_role"`
	QuantityKg    *float64           `bigquery:"quantity_kg"`
	UnitPrice     *float64           `bigquery:"unit_price"`
	TotalAmount   *float64           `bigquery:"total_amount"`
	Amount        *float64           `bigquery:"amount"`
	AmountPaid    *float64           `bigquery:"amount_paid"`
	PaymentMethod *string            `bigquery:"payment_method"`
	PaymentStatus *string            `bigquery:"payment_status"`
	DeliveryDays  *int64             `bigquery:"delivery_days"`
	DaysOverdue   *int64             `bigquery:"days_overdue"`
	Reason        *string            `bigquery:"reason"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

// MarketplaceEventsTable provisions name as a day-partitioned table clustered
// on the columns the dashboard filters by.
func MarketplaceEventsTable(name string) pkgbigquery.TableSpec {
	return pkgbigquery.TableSpec{
		Name:           name,
		Schema:         MarketplaceEventSchema(),
		PartitionField: "occurred_at",
		ClusterBy:      []string{"event_type", "farmer_id"},
	}
}

// MarketplaceEventSchema is the table schema used when the table must be created.
func MarketplaceEventSchema() cbigquery.Schema {
	nullable := func(name string, kind cbigquery.FieldType) *cbigquery.FieldSchema {
		return &cbigquery.FieldSchema{Name: name, Type: kind}
	}
	required := func(name string, kind cbigquery.FieldType) *cbigquery.FieldSchema {
		return &cbigquery.FieldSchema{Name: name, Type: kind, Required: true}
	}
	return cbigquery.Schema{
		required("event_id", cbigquery.StringFieldType),
		required("event_type", cbigquery.StringFieldType),
		required("occurred_at", cbigquery.TimestampFieldType),
		required("sell_id", cbigquery.StringFieldType),
		nullable("purchase_id", cbigquery.StringFieldType),
		nullable("payment_id", cbigquery.StringFieldType),
		nullable("farmer_id", cbigquery.StringFieldType),
		nullable("buyer_id", cbigquery.StringFieldType),
		nullable("actor_role", cbigquery.StringFieldType),
		nullable("quantity_kg", cbigquery.FloatFieldType),
		nullable("unit_price", cbigquery.FloatFieldType),
		nullable("total_amount", cbigquery.FloatFieldType),
		nullable("amount", cbigquery.FloatFieldType),
		nullable("amount_paid", cbigquery.FloatFieldType),
		nullable("payment_method", cbigquery.StringFieldType),
		nullable("payment_status", cbigquery.StringFieldType),
		nullable("delivery_days", cbigquery.IntegerFieldType),
		nullable("days_overdue", cbigquery.IntegerFieldType),
		nullable("reason", cbigquery.StringFieldType),
		nullable("payload", cbigquery.JSONFieldType),
	}
}
