package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/payments"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// CreateListingRequest posts part of a harvest stock for sale.
type CreateListingRequest struct {
	HarvestStockID uuid.UUID       `json:"harvest_stock_id" validate:"required"`
	QuantitySold   decimal.Decimal `json:"quantity_sold"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DeliveryDays   *int            `json:"delivery_days,omitempty"`
	Notes          string          `json:"notes" validate:"max=1000"`
}

// UpdateListingRequest patches a posted listing. Nil fields are left alone.
type UpdateListingRequest struct {
	QuantitySold *decimal.Decimal `json:"quantity_sold,omitempty"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	DeliveryDays *int             `json:"delivery_days,omitempty"`
	Notes        *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ClaimRequest is a buyer's claim on a posted listing.
type ClaimRequest struct {
	DeliveryAddress string `json:"delivery_address" validate:"required,max=500"`
	DeliveryNotes   string `json:"delivery_notes" validate:"max=1000"`
	Notes           string `json:"notes" validate:"max=1000"`
}

// RecordPaymentRequest records an offline payment against a listing.
type RecordPaymentRequest struct {
	Amount          decimal.Decimal     `json:"amount"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method" validate:"required"`
	PaymentDate     string              `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ReferenceNumber string              `json:"reference_number" validate:"max=100"`
	Notes           string              `json:"notes" validate:"max=1000"`
}

// PaymentStatusRequest confirms a listing as fully paid.
type PaymentStatusRequest struct {
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Notes      string          `json:"notes" validate:"max=1000"`
}

// DeliveryInfoRequest updates where and how goods are delivered.
type DeliveryInfoRequest struct {
	DeliveryAddress *string `json:"delivery_address,omitempty" validate:"omitempty,max=500"`
	DeliveryNotes   *string `json:"delivery_notes,omitempty" validate:"omitempty,max=1000"`
}

// ListingDTO is the transport shape of a listing.
type ListingDTO struct {
	ID                    uuid.UUID                  `json:"id"`
	FarmerID              uuid.UUID                  `json:"farmer_id"`
	HarvestStockID        uuid.UUID                  `json:"harvest_stock_id"`
	BuyerID               *uuid.UUID                 `json:"buyer_id,omitempty"`
	QuantitySold          decimal.Decimal            `json:"quantity_sold"`
	UnitPrice             decimal.Decimal            `json:"unit_price"`
	TotalAmount           decimal.Decimal            `json:"total_amount"`
	AmountPaid            decimal.Decimal            `json:"amount_paid"`
	RemainingBalance      decimal.Decimal            `json:"remaining_balance"`
	SellStatus            enums.SellStatus           `json:"sell_status"`
	PaymentStatus         enums.ListingPaymentStatus `json:"payment_status"`
	DeliveryDays          int                        `json:"delivery_days"`
	DeliveryAddress       string                     `json:"delivery_address"`
	DeliveryNotes         string                     `json:"delivery_notes"`
	DeliveryDate          *string                    `json:"delivery_date,omitempty"`
	EstimatedDeliveryDate *string                    `json:"estimated_delivery_date,omitempty"`
	DaysUntilDelivery     *int                       `json:"days_until_delivery,omitempty"`
	IsDeliveryOverdue     bool                       `json:"is_delivery_overdue"`
	PaymentCompletedDate  *time.Time                 `json:"payment_completed_date,omitempty"`
	PurchasedDate         *time.Time                 `json:"purchased_date,omitempty"`
	Notes                 string                     `json:"notes"`
	Version               int64                      `json:"version"`
	CreatedAt             time.Time                  `json:"created_at"`
	UpdatedAt             time.Time                  `json:"updated_at"`
}

// SellPaymentDTO is the transport shape of a listing payment.
type SellPaymentDTO struct {
	ID              uuid.UUID           `json:"id"`
	SellID          uuid.UUID           `json:"sell_id"`
	Amount          decimal.Decimal     `json:"amount"`
	PaymentDate     string              `json:"payment_date"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	Status          enums.PaymentStatus `json:"status"`
	ReferenceNumber string              `json:"reference_number"`
	Notes           string              `json:"notes"`
	PaidBy          *uuid.UUID          `json:"paid_by,omitempty"`
	CompletedDate   *time.Time          `json:"completed_date,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// PaymentResult pairs a recorded payment with the listing it moved.
type PaymentResult struct {
	Payment SellPaymentDTO `json:"payment"`
	Listing ListingDTO     `json:"listing"`
}

// DeliveriesDTO is a counted list of listings with delivery commitments.
type DeliveriesDTO struct {
	Count    int          `json:"count"`
	Listings []ListingDTO `json:"listings"`
}

// ListingFromModel maps a sell row, deriving the delivery view at now.
func ListingFromModel(s *models.Sell, now time.Time) *ListingDTO {
	if s == nil {
		return nil
	}
	return &ListingDTO{
		ID:                    s.ID,
		FarmerID:              s.FarmerID,
		HarvestStockID:        s.HarvestStockID,
		BuyerID:               s.BuyerID,
		QuantitySold:          s.QuantitySold,
		UnitPrice:             s.UnitPrice,
		TotalAmount:           s.TotalAmount,
		AmountPaid:            s.AmountPaid,
		RemainingBalance:      payments.Remaining(s.TotalAmount, s.AmountPaid),
		SellStatus:            s.SellStatus,
		PaymentStatus:         s.PaymentStatus,
		DeliveryDays:          s.DeliveryDays,
		DeliveryAddress:       s.DeliveryAddress,
		DeliveryNotes:         s.DeliveryNotes,
		DeliveryDate:          formatDate(s.DeliveryDate),
		EstimatedDeliveryDate: formatDate(EstimatedDeliveryDate(s)),
		DaysUntilDelivery:     DaysUntilDelivery(s, now),
		IsDeliveryOverdue:     IsDeliveryOverdue(s, now),
		PaymentCompletedDate:  s.PaymentCompletedDate,
		PurchasedDate:         s.PurchasedDate,
		Notes:                 s.Notes,
		Version:               s.Version,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

func SellPaymentFromModel(p *models.SellPayment) SellPaymentDTO {
	return SellPaymentDTO{
		ID:              p.ID,
		SellID:          p.SellID,
		Amount:          p.Amount,
		PaymentDate:     p.PaymentDate.Format(dateLayout),
		PaymentMethod:   p.PaymentMethod,
		Status:          p.Status,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		PaidBy:          p.PaidBy,
		CompletedDate:   p.CompletedDate,
		CreatedAt:       p.CreatedAt,
	}
}

func listingsFromModels(rows []models.Sell, now time.Time) []ListingDTO {
	out := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *ListingFromModel(&rows[i], now))
	}
	return out
}

func formatDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format(dateLayout)
	return &formatted
}
