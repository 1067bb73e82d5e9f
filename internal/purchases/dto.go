package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// CreatePurchaseRequest claims a posted listing.
type CreatePurchaseRequest struct {
	SellID          uuid.UUID `json:"sell_id" validate:"required"`
	DeliveryAddress string    `json:"delivery_address" validate:"required,max=500"`
	DeliveryNotes   string    `json:"delivery_notes" validate:"max=1000"`
	Notes           string    `json:"notes" validate:"max=1000"`
}

// MakePaymentRequest pays toward a purchase.
type MakePaymentRequest struct {
	Amount        decimal.Decimal     `json:"amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	PhoneNumber   string              `json:"phone_number" validate:"omitempty,phone"`
	Notes         string              `json:"notes" validate:"max=1000"`
}

// UpdateStatusRequest moves a purchase to delivered or cancelled.
type UpdateStatusRequest struct {
	Status enums.PurchaseStatus `json:"status" validate:"required"`
	Notes  string               `json:"notes" validate:"max=500"`
}

// PurchaseDTO is the transport shape of a purchase.
type PurchaseDTO struct {
	ID                   uuid.UUID            `json:"id"`
	BuyerID              uuid.UUID            `json:"buyer_id"`
	SellID               uuid.UUID            `json:"sell_id"`
	QuantityPurchased    decimal.Decimal      `json:"quantity_purchased"`
	UnitPrice            decimal.Decimal      `json:"unit_price"`
	TotalAmount          decimal.Decimal      `json:"total_amount"`
	AmountPaid           decimal.Decimal      `json:"amount_paid"`
	RemainingBalance     decimal.Decimal      `json:"remaining_balance"`
	PaymentProgress      decimal.Decimal      `json:"payment_progress"`
	CanMakePayment       bool                 `json:"can_make_payment"`
	DeliveryAddress      string               `json:"delivery_address"`
	DeliveryNotes        string               `json:"delivery_notes"`
	ExpectedDeliveryDate *string              `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *string              `json:"actual_delivery_date,omitempty"`
	PurchaseStatus       enums.PurchaseStatus `json:"purchase_status"`
	CompletedPaymentDate *time.Time           `json:"completed_payment_date,omitempty"`
	Notes                string               `json:"notes"`
	PurchasedDate        time.Time            `json:"purchased_date"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// PaymentDTO is the transport shape of a purchase payment.
type PaymentDTO struct {
	ID              uuid.UUID           `json:"id"`
	PurchaseID      uuid.UUID           `json:"purchase_id"`
	Amount          decimal.Decimal     `json:"amount"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PayPackRef      *string             `json:"paypack_ref,omitempty"`
	PayPackStatus   *string             `json:"paypack_status,omitempty"`
	PhoneNumber     string              `json:"phone_number,omitempty"`
	Status          enums.PaymentStatus `json:"status"`
	ReferenceNumber string              `json:"reference_number"`
	TransactionDate time.Time           `json:"transaction_date"`
	CompletedDate   *time.Time          `json:"completed_date,omitempty"`
	Notes           string              `json:"notes"`
	FailureReason   string              `json:"failure_reason,omitempty"`
}

// PaymentResult pairs a new payment with the purchase it moved.
type PaymentResult struct {
	Payment  PaymentDTO  `json:"payment"`
	Purchase PurchaseDTO `json:"purchase"`
}

// PaymentSummary is the balance view of one purchase.
type PaymentSummary struct {
	TotalAmount      decimal.Decimal `json:"total_amount"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	PaymentProgress  decimal.Decimal `json:"payment_progress"`
}

// PaymentsDTO lists the payments of a purchase with its summary.
type PaymentsDTO struct {
	Count    int            `json:"count"`
	Payments []PaymentDTO   `json:"payments"`
	Summary  PaymentSummary `json:"purchase_summary"`
}

func PurchaseFromModel(p *models.Purchase) *PurchaseDTO {
	if p == nil {
		return nil
	}
	return &PurchaseDTO{
		ID:                   p.ID,
		BuyerID:              p.BuyerID,
		SellID:               p.SellID,
		QuantityPurchased:    p.QuantityPurchased,
		UnitPrice:            p.UnitPrice,
		TotalAmount:          p.TotalAmount,
		AmountPaid:           p.AmountPaid,
		RemainingBalance:     RemainingBalance(p),
		PaymentProgress:      PaymentProgress(p),
		CanMakePayment:       CanMakePayment(p),
		DeliveryAddress:      p.DeliveryAddress,
		DeliveryNotes:        p.DeliveryNotes,
		ExpectedDeliveryDate: formatDate(p.ExpectedDeliveryDate),
		ActualDeliveryDate:   formatDate(p.ActualDeliveryDate),
		PurchaseStatus:       p.PurchaseStatus,
		CompletedPaymentDate: p.CompletedPaymentDate,
		Notes:                p.Notes,
		PurchasedDate:        p.PurchasedDate,
		UpdatedAt:            p.UpdatedAt,
	}
}

func PaymentFromModel(p *models.PurchasePayment) PaymentDTO {
	return PaymentDTO{
		ID:              p.ID,
		PurchaseID:      p.PurchaseID,
		Amount:          p.Amount,
		PaymentMethod:   p.PaymentMethod,
		PayPackRef:      p.PayPackRef,
		PayPackStatus:   p.PayPackStatus,
		PhoneNumber:     p.PhoneNumber,
		Status:          p.Status,
		ReferenceNumber: p.ReferenceNumber,
		TransactionDate: p.TransactionDate,
		CompletedDate:   p.CompletedDate,
		Notes:           p.Notes,
		FailureReason:   p.FailureReason,
	}
}

func formatDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format(dateLayout)
	return &formatted
}
