package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// StorageOrder is a request to store goods on a warehouse commodity line.
// Confirming imports the quantity; exporting takes it back out.
type StorageOrder struct {
	ID                   uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	UserID               uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	WarehouseID          uuid.UUID                 `gorm:"column:warehouse_id;type:uuid;not null;index"`
	WarehouseCommodityID uuid.UUID                 `gorm:"column:warehouse_commodity_id;type:uuid;not null;index"`
	Origin               string                    `gorm:"column:origin;not null"`
	Quantity             decimal.Decimal           `gorm:"column:quantity;type:numeric(15,2);not null"`
	CostCharged          decimal.Decimal           `gorm:"column:cost_charged;type:numeric(12,2);not null"`
	PhoneNumber          string                    `gorm:"column:phone_number;not null;default:''"`
	Status               enums.StorageOrderStatus  `gorm:"column:status;type:storage_order_status;not null"`
	AvailabilityStatus   enums.StorageAvailability `gorm:"column:availability_status;type:storage_availability;not null"`
	IsPaid               bool                      `gorm:"column:is_paid;not null;default:false"`
	PayPackRef           *string                   `gorm:"column:paypack_ref"`
	PayPackStatus        *string                   `gorm:"column:paypack_status"`
	RejectionReason      string                    `gorm:"column:rejection_reason;not null;default:''"`
	CreatedAt            time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *StorageOrder) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}
