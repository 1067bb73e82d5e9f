package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// Purchase is the buyer-side record of a claimed listing (one per Sell).
type Purchase struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID              uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellID               uuid.UUID            `gorm:"column:sell_id;type:uuid;not null;uniqueIndex"`
	QuantityPurchased    decimal.Decimal      `gorm:"column:quantity_purchased;type:numeric(10,2);not null"`
	UnitPrice            decimal.Decimal      `gorm:"column:unit_price;type:numeric(10,2);not null"`
	TotalAmount          decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	AmountPaid           decimal.Decimal      `gorm:"column:amount_paid;type:numeric(12,2);not null"`
	DeliveryAddress      string               `gorm:"column:delivery_address;not null"`
	DeliveryNotes        string               `gorm:"column:delivery_notes;not null;default:''"`
	ExpectedDeliveryDate *time.Time           `gorm:"column:expected_delivery_date;type:date"`
	ActualDeliveryDate   *time.Time           `gorm:"column:actual_delivery_date;type:date"`
	PurchaseStatus       enums.PurchaseStatus `gorm:"column:purchase_status;type:purchase_status;not null"`
	CompletedPaymentDate *time.Time           `gorm:"column:completed_payment_date"`
	Notes                string               `gorm:"column:notes;not null;default:''"`
	PurchasedDate        time.Time            `gorm:"column:purchased_date;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Purchase) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// PurchasePayment is one payment event toward a Purchase.
type PurchasePayment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID      uuid.UUID           `gorm:"column:purchase_id;type:uuid;not null;index"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PayPackRef      *string             `gorm:"column:paypack_ref"`
	PayPackStatus   *string             `gorm:"column:paypack_status"`
	PhoneNumber     string              `gorm:"column:phone_number;not null;default:''"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	ReferenceNumber string              `gorm:"column:reference_number;not null;default:''"`
	TransactionDate time.Time           `gorm:"column:transaction_date;autoCreateTime"`
	CompletedDate   *time.Time          `gorm:"column:completed_date"`
	Notes           string              `gorm:"column:notes;not null;default:''"`
	FailureReason   string              `gorm:"column:failure_reason;not null;default:''"`
}

func (p *PurchasePayment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
