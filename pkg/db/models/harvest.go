package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// SunflowerHarvest records one harvest and where it is stored.
type SunflowerHarvest struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID        uuid.UUID          `gorm:"column:farmer_id;type:uuid;not null;index"`
	HarvestDate     time.Time          `gorm:"column:harvest_date;type:date;not null"`
	Quantity        decimal.Decimal    `gorm:"column:quantity;type:numeric(10,2);not null"`
	QualityGrade    enums.QualityGrade `gorm:"column:quality_grade;type:quality_grade;not null"`
	MoistureContent decimal.Decimal    `gorm:"column:moisture_content;type:numeric(5,2);not null"`
	OilContent      decimal.Decimal    `gorm:"column:oil_content;type:numeric(5,2);not null"`
	District        string             `gorm:"column:district;not null"`
	Sector          string             `gorm:"column:sector;not null"`
	Cell            string             `gorm:"column:cell;not null"`
	Village         string             `gorm:"column:village;not null"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (h *SunflowerHarvest) BeforeCreate(*gorm.DB) error {
	assignID(&h.ID)
	return nil
}

// Location renders the storage location from village up to district.
func (h SunflowerHarvest) Location() string {
	return fmt.Sprintf("%s, %s, %s, %s", h.Village, h.Cell, h.Sector, h.District)
}

// HarvestStock is the remaining quantity of a harvest.
type HarvestStock struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	HarvestID       uuid.UUID       `gorm:"column:harvest_id;type:uuid;not null;uniqueIndex"`
	CurrentQuantity decimal.Decimal `gorm:"column:current_quantity;type:numeric(10,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	LastUpdated     time.Time       `gorm:"column:last_updated;autoUpdateTime"`
}

func (s *HarvestStock) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// HarvestMovement is an immutable quantity change on a HarvestStock.
type HarvestMovement struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	StockID      uuid.UUID          `gorm:"column:stock_id;type:uuid;not null;index"`
	SellID       *uuid.UUID         `gorm:"column:sell_id;type:uuid;index"`
	MovementType enums.MovementType `gorm:"column:movement_type;type:movement_type;not null"`
	Quantity     decimal.Decimal    `gorm:"column:quantity;type:numeric(10,2);not null"`
	ToDistrict   *string            `gorm:"column:to_district"`
	ToSector     *string            `gorm:"column:to_sector"`
	ToCell       *string            `gorm:"column:to_cell"`
	ToVillage    *string            `gorm:"column:to_village"`
	FromDistrict string             `gorm:"column:from_district;not null"`
	FromSector   string             `gorm:"column:from_sector;not null"`
	FromCell     string             `gorm:"column:from_cell;not null"`
	FromVillage  string             `gorm:"column:from_village;not null"`
	Notes        string             `gorm:"column:notes;not null;default:''"`
	CreatedBy    *uuid.UUID         `gorm:"column:created_by;type:uuid"`
	MovementDate time.Time          `gorm:"column:movement_date;autoCreateTime"`
}

func (m *HarvestMovement) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
