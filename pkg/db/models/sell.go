package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// Sell is a farmer's listing of harvest stock. Version guards the claim race.
type Sell struct {
	ID                   uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID             uuid.UUID                  `gorm:"column:farmer_id;type:uuid;not null;index"`
	HarvestStockID       uuid.UUID                  `gorm:"column:harvest_stock_id;type:uuid;not null;index"`
	BuyerID              *uuid.UUID                 `gorm:"column:buyer_id;type:uuid;index"`
	QuantitySold         decimal.Decimal            `gorm:"column:quantity_sold;type:numeric(10,2);not null"`
	UnitPrice            decimal.Decimal            `gorm:"column:unit_price;type:numeric(10,2);not null"`
	TotalAmount          decimal.Decimal            `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DeliveryDays         int                        `gorm:"column:delivery_days;not null;default:7"`
	SellStatus           enums.SellStatus           `gorm:"column:sell_status;type:sell_status;not null;index"`
	PaymentStatus        enums.ListingPaymentStatus `gorm:"column:payment_status;type:listing_payment_status;not null"`
	AmountPaid           decimal.Decimal            `gorm:"column:amount_paid;type:numeric(12,2);not null"`
	DeliveryAddress      string                     `gorm:"column:delivery_address;not null;default:''"`
	DeliveryNotes        string                     `gorm:"column:delivery_notes;not null;default:''"`
	DeliveryDate         *time.Time                 `gorm:"column:delivery_date;type:date"`
	PaymentCompletedDate *time.Time                 `gorm:"column:payment_completed_date"`
	PurchasedDate        *time.Time                 `gorm:"column:purchased_date"`
	Notes                string                     `gorm:"column:notes;not null;default:''"`
	Version              int64                      `gorm:"column:version;not null;default:1"`
	CreatedAt            time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Sell) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}

// SellPayment is a payment recorded directly against a listing.
type SellPayment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellID          uuid.UUID           `gorm:"column:sell_id;type:uuid;not null;index"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentDate     time.Time           `gorm:"column:payment_date;type:date;not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	ReferenceNumber string              `gorm:"column:reference_number;not null;default:''"`
	Notes           string              `gorm:"column:notes;not null;default:''"`
	PaidBy          *uuid.UUID          `gorm:"column:paid_by;type:uuid"`
	CompletedDate   *time.Time          `gorm:"column:completed_date"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *SellPayment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
