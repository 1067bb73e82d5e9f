package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pagination"
)

// Repository defines persistence for harvests, stock and warehouses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateHarvest(ctx context.Context, harvest *models.SunflowerHarvest) error
	FindHarvest(ctx context.Context, id uuid.UUID) (*models.SunflowerHarvest, error)
	ListHarvests(ctx context.Context, farmerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.SunflowerHarvest, error)
	DeleteHarvest(ctx context.Context, harvestID uuid.UUID) error

	CreateStock(ctx context.Context, stock *models.HarvestStock) error
	FindStock(ctx context.Context, id uuid.UUID) (*models.HarvestStock, error)
	FindStockForUpdate(ctx context.Context, id uuid.UUID) (*models.HarvestStock, error)
	FindStocksByHarvest(ctx context.Context, harvestIDs []uuid.UUID) ([]models.HarvestStock, error)
	ListStocks(ctx context.Context, farmerID *uuid.UUID) ([]models.HarvestStock, error)
	SaveStock(ctx context.Context, stock *models.HarvestStock) error
	CountListingsForStock(ctx context.Context, stockID uuid.UUID) (int64, error)

	CreateMovement(ctx context.Context, movement *models.HarvestMovement) error
	ListMovements(ctx context.Context, stockID uuid.UUID) ([]models.HarvestMovement, error)
	CountSellOutMovements(ctx context.Context, sellID uuid.UUID) (int64, error)

	CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error
	FindWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	ListWarehouses(ctx context.Context, ownerID *uuid.UUID) ([]models.Warehouse, error)

	CreateCommodity(ctx context.Context, commodity *models.WarehouseCommodity) error
	FindCommodityForUpdate(ctx context.Context, id uuid.UUID) (*models.WarehouseCommodity, error)
	ListCommodities(ctx context.Context, warehouseIDs []uuid.UUID) ([]models.WarehouseCommodity, error)
	SaveCommodity(ctx context.Context, commodity *models.WarehouseCommodity) error
	CreateCommodityMovement(ctx context.Context, movement *models.CommodityMovement) error
	ListCommodityMovements(ctx context.Context, commodityID uuid.UUID) ([]models.CommodityMovement, error)

	CreateStorageOrder(ctx context.Context, order *models.StorageOrder) error
	FindStorageOrder(ctx context.Context, id uuid.UUID) (*models.StorageOrder, error)
	FindStorageOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.StorageOrder, error)
	ListStorageOrders(ctx context.Context, filter StorageOrderFilter) ([]models.StorageOrder, error)
	SaveStorageOrder(ctx context.Context, order *models.StorageOrder) error
	DeleteStorageOrder(ctx context.Context, id uuid.UUID) error
}

// StorageOrderFilter narrows ListStorageOrders. A nil WarehouseIDs means any
// warehouse; an empty non-nil slice matches nothing.
type StorageOrderFilter struct {
	UserID       *uuid.UUID
	WarehouseIDs []uuid.UUID
	Status       *enums.StorageOrderStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// forUpdate adds a row lock where the dialect supports it. SQLite serializes
// writers on its own.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (r *repository) CreateHarvest(ctx context.Context, harvest *models.SunflowerHarvest) error {
	return r.db.WithContext(ctx).Create(harvest).Error
}

func (r *repository) FindHarvest(ctx context.Context, id uuid.UUID) (*models.SunflowerHarvest, error) {
	var harvest models.SunflowerHarvest
	if err := r.db.WithContext(ctx).First(&harvest, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &harvest, nil
}

func (r *repository) ListHarvests(ctx context.Context, farmerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.SunflowerHarvest, error) {
	query := r.db.WithContext(ctx).Model(&models.SunflowerHarvest{})
	if farmerID != nil {
		query = query.Where("farmer_id = ?", *farmerID)
	}
	var rows []models.SunflowerHarvest
	if err := pagination.Apply(query, cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteHarvest(ctx context.Context, harvestID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	stockIDs := db.Model(&models.HarvestStock{}).Select("id").Where("harvest_id = ?", harvestID)
	if err := db.Where("stock_id IN (?)", stockIDs).Delete(&models.HarvestMovement{}).Error; err != nil {
		return err
	}
	if err := db.Where("harvest_id = ?", harvestID).Delete(&models.HarvestStock{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.SunflowerHarvest{}, "id = ?", harvestID).Error
}

func (r *repository) CreateStock(ctx context.Context, stock *models.HarvestStock) error {
	return r.db.WithContext(ctx).Create(stock).Error
}

func (r *repository) FindStock(ctx context.Context, id uuid.UUID) (*models.HarvestStock, error) {
	var stock models.HarvestStock
	if err := r.db.WithContext(ctx).First(&stock, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) FindStockForUpdate(ctx context.Context, id uuid.UUID) (*models.HarvestStock, error) {
	var stock models.HarvestStock
	if err := forUpdate(r.db.WithContext(ctx)).First(&stock, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) FindStocksByHarvest(ctx context.Context, harvestIDs []uuid.UUID) ([]models.HarvestStock, error) {
	if len(harvestIDs) == 0 {
		return nil, nil
	}
	var stocks []models.HarvestStock
	if err := r.db.WithContext(ctx).Where("harvest_id IN ?", harvestIDs).Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

func (r *repository) ListStocks(ctx context.Context, farmerID *uuid.UUID) ([]models.HarvestStock, error) {
	query := r.db.WithContext(ctx).
		Model(&models.HarvestStock{}).
		Joins("JOIN sunflower_harvests ON sunflower_harvests.id = harvest_stocks.harvest_id")
	if farmerID != nil {
		query = query.Where("sunflower_harvests.farmer_id = ?", *farmerID)
	}
	var stocks []models.HarvestStock
	if err := query.Order("harvest_stocks.last_updated DESC").Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

func (r *repository) SaveStock(ctx context.Context, stock *models.HarvestStock) error {
	return r.db.WithContext(ctx).
		Model(stock).
		Select("current_quantity", "last_updated").
		Updates(stock).Error
}

func (r *repository) CountListingsForStock(ctx context.Context, stockID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Sell{}).
		Where("harvest_stock_id = ?", stockID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.HarvestMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, stockID uuid.UUID) ([]models.HarvestMovement, error) {
	var rows []models.HarvestMovement
	err := r.db.WithContext(ctx).
		Where("stock_id = ?", stockID).
		Order("movement_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountSellOutMovements(ctx context.Context, sellID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.HarvestMovement{}).
		Where("sell_id = ? AND movement_type = ?", sellID, enums.MovementOut).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error {
	return r.db.WithContext(ctx).Create(warehouse).Error
}

func (r *repository) FindWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func (r *repository) ListWarehouses(ctx context.Context, ownerID *uuid.UUID) ([]models.Warehouse, error) {
	query := r.db.WithContext(ctx).Model(&models.Warehouse{})
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}
	var rows []models.Warehouse
	if err := query.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateCommodity(ctx context.Context, commodity *models.WarehouseCommodity) error {
	return r.db.WithContext(ctx).Create(commodity).Error
}

func (r *repository) FindCommodityForUpdate(ctx context.Context, id uuid.UUID) (*models.WarehouseCommodity, error) {
	var commodity models.WarehouseCommodity
	if err := forUpdate(r.db.WithContext(ctx)).First(&commodity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &commodity, nil
}

func (r *repository) ListCommodities(ctx context.Context, warehouseIDs []uuid.UUID) ([]models.WarehouseCommodity, error) {
	if len(warehouseIDs) == 0 {
		return nil, nil
	}
	var rows []models.WarehouseCommodity
	err := r.db.WithContext(ctx).
		Where("warehouse_id IN ?", warehouseIDs).
		Order("commodity ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SaveCommodity(ctx context.Context, commodity *models.WarehouseCommodity) error {
	return r.db.WithContext(ctx).
		Model(commodity).
		Select("current_quantity", "updated_at").
		Updates(commodity).Error
}

func (r *repository) CreateCommodityMovement(ctx context.Context, movement *models.CommodityMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListCommodityMovements(ctx context.Context, commodityID uuid.UUID) ([]models.CommodityMovement, error) {
	var rows []models.CommodityMovement
	err := r.db.WithContext(ctx).
		Where("warehouse_commodity_id = ?", commodityID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateStorageOrder(ctx context.Context, order *models.StorageOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindStorageOrder(ctx context.Context, id uuid.UUID) (*models.StorageOrder, error) {
	var order models.StorageOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindStorageOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.StorageOrder, error) {
	var order models.StorageOrder
	if err := forUpdate(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListStorageOrders(ctx context.Context, filter StorageOrderFilter) ([]models.StorageOrder, error) {
	if filter.WarehouseIDs != nil && len(filter.WarehouseIDs) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).Model(&models.StorageOrder{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.WarehouseIDs != nil {
		query = query.Where("warehouse_id IN ?", filter.WarehouseIDs)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	var rows []models.StorageOrder
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SaveStorageOrder(ctx context.Context, order *models.StorageOrder) error {
	return r.db.WithContext(ctx).
		Model(order).
		Select("status", "availability_status", "is_paid", "paypack_ref", "paypack_status", "rejection_reason", "updated_at").
		Updates(order).Error
}

func (r *repository) DeleteStorageOrder(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.StorageOrder{}, "id = ?", id).Error
}
