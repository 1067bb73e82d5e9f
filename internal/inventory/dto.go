package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// CreateHarvestRequest is the payload a farmer submits after harvesting.
type CreateHarvestRequest struct {
	HarvestDate     string             `json:"harvest_date" validate:"required,datetime=2006-01-02"`
	Quantity        decimal.Decimal    `json:"quantity"`
	QualityGrade    enums.QualityGrade `json:"quality_grade" validate:"required"`
	MoistureContent decimal.Decimal    `json:"moisture_content"`
	OilContent      decimal.Decimal    `json:"oil_content"`
	District        string             `json:"district" validate:"required,max=100"`
	Sector          string             `json:"sector" validate:"required,max=100"`
	Cell            string             `json:"cell" validate:"required,max=100"`
	Village         string             `json:"village" validate:"required,max=100"`
}

// MovementRequest records a quantity change on a harvest stock.
type MovementRequest struct {
	MovementType enums.MovementType `json:"movement_type" validate:"required"`
	Quantity     decimal.Decimal    `json:"quantity"`
	ToDistrict   *string            `json:"to_district,omitempty"`
	ToSector     *string            `json:"to_sector,omitempty"`
	ToCell       *string            `json:"to_cell,omitempty"`
	ToVillage    *string            `json:"to_village,omitempty"`
	Notes        string             `json:"notes"`
}

// CreateWarehouseRequest registers a storage site.
type CreateWarehouseRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	District string `json:"district" validate:"required,max=100"`
	Sector   string `json:"sector" validate:"required,max=100"`
}

// AddCommodityRequest opens a commodity line in a warehouse.
type AddCommodityRequest struct {
	Commodity         string          `json:"commodity" validate:"required,max=100"`
	Unit              string          `json:"unit" validate:"omitempty,max=20"`
	InitialQuantity   decimal.Decimal `json:"initial_quantity"`
	MaxCapacity       decimal.Decimal `json:"max_capacity"`
	MinimumStockLevel decimal.Decimal `json:"minimum_stock_level"`
}

// InventoryOperation names a warehouse inventory change.
type InventoryOperation string

const (
	OperationAdd      InventoryOperation = "add"
	OperationRemove   InventoryOperation = "remove"
	OperationAdjust   InventoryOperation = "adjust"
	OperationTransfer InventoryOperation = "transfer"
)

// InventoryChangeRequest applies one operation to a commodity line. For
// adjust, Quantity is the new absolute level.
type InventoryChangeRequest struct {
	Operation       InventoryOperation `json:"operation" validate:"required,oneof=add remove adjust transfer"`
	Quantity        decimal.Decimal    `json:"quantity"`
	TargetID        *uuid.UUID         `json:"target_commodity_id,omitempty"`
	ReferenceNumber string             `json:"reference_number" validate:"max=100"`
	Notes           string             `json:"notes"`
}

// HarvestDTO is the transport shape of a harvest with its remaining stock.
type HarvestDTO struct {
	ID              uuid.UUID          `json:"id"`
	FarmerID        uuid.UUID          `json:"farmer_id"`
	HarvestDate     string             `json:"harvest_date"`
	Quantity        decimal.Decimal    `json:"quantity"`
	QualityGrade    enums.QualityGrade `json:"quality_grade"`
	QualityLabel    string             `json:"quality_grade_display"`
	MoistureContent decimal.Decimal    `json:"moisture_content"`
	OilContent      decimal.Decimal    `json:"oil_content"`
	District        string             `json:"district"`
	Sector          string             `json:"sector"`
	Cell            string             `json:"cell"`
	Village         string             `json:"village"`
	Location        string             `json:"location"`
	Stock           *StockDTO          `json:"stock,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// StockDTO is the transport shape of a HarvestStock.
type StockDTO struct {
	ID              uuid.UUID       `json:"id"`
	HarvestID       uuid.UUID       `json:"harvest_id"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	LastUpdated     time.Time       `json:"last_updated"`
}

// MovementDTO is the transport shape of a HarvestMovement.
type MovementDTO struct {
	ID           uuid.UUID          `json:"id"`
	StockID      uuid.UUID          `json:"stock_id"`
	SellID       *uuid.UUID         `json:"sell_id,omitempty"`
	MovementType enums.MovementType `json:"movement_type"`
	Quantity     decimal.Decimal    `json:"quantity"`
	ToDistrict   *string            `json:"to_district,omitempty"`
	ToSector     *string            `json:"to_sector,omitempty"`
	ToCell       *string            `json:"to_cell,omitempty"`
	ToVillage    *string            `json:"to_village,omitempty"`
	FromDistrict string             `json:"from_district"`
	FromSector   string             `json:"from_sector"`
	FromCell     string             `json:"from_cell"`
	FromVillage  string             `json:"from_village"`
	Notes        string             `json:"notes"`
	CreatedBy    *uuid.UUID         `json:"created_by,omitempty"`
	MovementDate time.Time          `json:"movement_date"`
}

// CommodityDTO is the transport shape of a WarehouseCommodity.
type CommodityDTO struct {
	ID                uuid.UUID       `json:"id"`
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	Commodity         string          `json:"commodity"`
	Unit              string          `json:"unit"`
	CurrentQuantity   decimal.Decimal `json:"current_quantity"`
	MaxCapacity       decimal.Decimal `json:"max_capacity"`
	MinimumStockLevel decimal.Decimal `json:"minimum_stock_level"`
	StockStatus       string          `json:"stock_status"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CapacityReportEntry summarizes utilisation of one commodity line.
type CapacityReportEntry struct {
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	WarehouseName   string          `json:"warehouse_name"`
	CommodityID     uuid.UUID       `json:"commodity_id"`
	Commodity       string          `json:"commodity"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	MaxCapacity     decimal.Decimal `json:"max_capacity"`
	UtilisationPct  decimal.Decimal `json:"utilisation_pct"`
	LowStock        bool            `json:"low_stock"`
}

// Stock statuses reported on commodity lines.
const (
	StockStatusOut = "out_of_stock"
	StockStatusLow = "low_stock"
	StockStatusIn  = "in_stock"
)

// HarvestFromModel maps a harvest and optional stock into the transport shape.
func HarvestFromModel(h *models.SunflowerHarvest, stock *models.HarvestStock) *HarvestDTO {
	if h == nil {
		return nil
	}
	return &HarvestDTO{
		ID:              h.ID,
		FarmerID:        h.FarmerID,
		HarvestDate:     h.HarvestDate.Format(dateLayout),
		Quantity:        h.Quantity,
		QualityGrade:    h.QualityGrade,
		QualityLabel:    h.QualityGrade.Label(),
		MoistureContent: h.MoistureContent,
		OilContent:      h.OilContent,
		District:        h.District,
		Sector:          h.Sector,
		Cell:            h.Cell,
		Village:         h.Village,
		Location:        h.Location(),
		Stock:           StockFromModel(stock),
		CreatedAt:       h.CreatedAt,
	}
}

func StockFromModel(s *models.HarvestStock) *StockDTO {
	if s == nil {
		return nil
	}
	return &StockDTO{
		ID:              s.ID,
		HarvestID:       s.HarvestID,
		CurrentQuantity: s.CurrentQuantity,
		LastUpdated:     s.LastUpdated,
	}
}

func MovementFromModel(m models.HarvestMovement) MovementDTO {
	return MovementDTO{
		ID:           m.ID,
		StockID:      m.StockID,
		SellID:       m.SellID,
		MovementType: m.MovementType,
		Quantity:     m.Quantity,
		ToDistrict:   m.ToDistrict,
		ToSector:     m.ToSector,
		ToCell:       m.ToCell,
		ToVillage:    m.ToVillage,
		FromDistrict: m.FromDistrict,
		FromSector:   m.FromSector,
		FromCell:     m.FromCell,
		FromVillage:  m.FromVillage,
		Notes:        m.Notes,
		CreatedBy:    m.CreatedBy,
		MovementDate: m.MovementDate,
	}
}

func CommodityFromModel(c *models.WarehouseCommodity) *CommodityDTO {
	if c == nil {
		return nil
	}
	return &CommodityDTO{
		ID:                c.ID,
		WarehouseID:       c.WarehouseID,
		Commodity:         c.Commodity,
		Unit:              c.Unit,
		CurrentQuantity:   c.CurrentQuantity,
		MaxCapacity:       c.MaxCapacity,
		MinimumStockLevel: c.MinimumStockLevel,
		StockStatus:       stockStatus(c),
		UpdatedAt:         c.UpdatedAt,
	}
}

func stockStatus(c *models.WarehouseCommodity) string {
	switch {
	case c.CurrentQuantity.IsZero():
		return StockStatusOut
	case c.CurrentQuantity.LessThanOrEqual(c.MinimumStockLevel):
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

// WarehouseDTO is the transport shape of a Warehouse.
type WarehouseDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	District  string    `json:"district"`
	Sector    string    `json:"sector"`
	CreatedAt time.Time `json:"created_at"`
}

// CommodityMovementDTO is the transport shape of a CommodityMovement.
type CommodityMovementDTO struct {
	ID              uuid.UUID          `json:"id"`
	CommodityID     uuid.UUID          `json:"commodity_id"`
	MovementType    enums.MovementType `json:"movement_type"`
	Quantity        decimal.Decimal    `json:"quantity"`
	QuantityBefore  decimal.Decimal    `json:"quantity_before"`
	QuantityAfter   decimal.Decimal    `json:"quantity_after"`
	ReferenceNumber string             `json:"reference_number"`
	Notes           string             `json:"notes"`
	CreatedBy       *uuid.UUID         `json:"created_by,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

func WarehouseFromModel(w *models.Warehouse) *WarehouseDTO {
	if w == nil {
		return nil
	}
	return &WarehouseDTO{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Name:      w.Name,
		District:  w.District,
		Sector:    w.Sector,
		CreatedAt: w.CreatedAt,
	}
}

func CommodityMovementFromModel(m models.CommodityMovement) CommodityMovementDTO {
	return CommodityMovementDTO{
		ID:              m.ID,
		CommodityID:     m.WarehouseCommodityID,
		MovementType:    m.MovementType,
		Quantity:        m.Quantity,
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
		ReferenceNumber: m.ReferenceNumber,
		Notes:           m.Notes,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}

// CreateStorageOrderRequest asks to store goods on a warehouse commodity line
// and pays the storage cost by mobile money.
type CreateStorageOrderRequest struct {
	WarehouseCommodityID uuid.UUID       `json:"warehouse_commodity_id" validate:"required"`
	Origin               string          `json:"origin" validate:"required,max=200"`
	Quantity             decimal.Decimal `json:"quantity"`
	CostCharged          decimal.Decimal `json:"cost_charged"`
	PhoneNumber          string          `json:"phone_number" validate:"required,max=20"`
}

// RejectStorageOrderRequest carries an optional reason shown to the requester.
type RejectStorageOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// StorageOrderDTO is the transport shape of a StorageOrder.
type StorageOrderDTO struct {
	ID                   uuid.UUID                 `json:"id"`
	UserID               uuid.UUID                 `json:"user_id"`
	WarehouseID          uuid.UUID                 `json:"warehouse_id"`
	WarehouseCommodityID uuid.UUID                 `json:"warehouse_commodity_id"`
	Origin               string                    `json:"origin"`
	Quantity             decimal.Decimal           `json:"quantity"`
	CostCharged          decimal.Decimal           `json:"cost_charged"`
	PhoneNumber          string                    `json:"phone_number"`
	Status               enums.StorageOrderStatus  `json:"status"`
	AvailabilityStatus   enums.StorageAvailability `json:"availability_status"`
	IsPaid               bool                      `json:"is_paid"`
	PayPackRef           *string                   `json:"paypack_ref,omitempty"`
	PayPackStatus        *string                   `json:"paypack_status,omitempty"`
	RejectionReason      string                    `json:"rejection_reason,omitempty"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

func StorageOrderFromModel(o *models.StorageOrder) *StorageOrderDTO {
	if o == nil {
		return nil
	}
	return &StorageOrderDTO{
		ID:                   o.ID,
		UserID:               o.UserID,
		WarehouseID:          o.WarehouseID,
		WarehouseCommodityID: o.WarehouseCommodityID,
		Origin:               o.Origin,
		Quantity:             o.Quantity,
		CostCharged:          o.CostCharged,
		PhoneNumber:          o.PhoneNumber,
		Status:               o.Status,
		AvailabilityStatus:   o.AvailabilityStatus,
		IsPaid:               o.IsPaid,
		PayPackRef:           o.PayPackRef,
		PayPackStatus:        o.PayPackStatus,
		RejectionReason:      o.RejectionReason,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}
