package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

type Warehouse struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	District  string    `gorm:"column:district;not null"`
	Sector    string    `gorm:"column:sector;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Warehouse) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}

// WarehouseCommodity is the stocked quantity of one commodity in a warehouse.
// A non-positive MaxCapacity means the line is unbounded.
type WarehouseCommodity struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	WarehouseID       uuid.UUID       `gorm:"column:warehouse_id;type:uuid;not null;uniqueIndex:ux_warehouse_commodity"`
	Commodity         string          `gorm:"column:commodity;not null;uniqueIndex:ux_warehouse_commodity"`
	Unit              string          `gorm:"column:unit;not null;default:'kg'"`
	CurrentQuantity   decimal.Decimal `gorm:"column:current_quantity;type:numeric(15,2);not null"`
	MaxCapacity       decimal.Decimal `gorm:"column:max_capacity;type:numeric(15,2);not null"`
	MinimumStockLevel decimal.Decimal `gorm:"column:minimum_stock_level;type:numeric(15,2);not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *WarehouseCommodity) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// CommodityMovement is the append-only history of a WarehouseCommodity.
type CommodityMovement struct {
	ID                   uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	WarehouseCommodityID uuid.UUID          `gorm:"column:warehouse_commodity_id;type:uuid;not null;index"`
	MovementType         enums.MovementType `gorm:"column:movement_type;type:movement_type;not null"`
	Quantity             decimal.Decimal    `gorm:"column:quantity;type:numeric(15,2);not null"`
	QuantityBefore       decimal.Decimal    `gorm:"column:quantity_before;type:numeric(15,2);not null"`
	QuantityAfter        decimal.Decimal    `gorm:"column:quantity_after;type:numeric(15,2);not null"`
	ReferenceNumber      string             `gorm:"column:reference_number;not null;default:''"`
	Notes                string             `gorm:"column:notes;not null;default:''"`
	CreatedBy            *uuid.UUID         `gorm:"column:created_by;type:uuid"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (m *CommodityMovement) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
