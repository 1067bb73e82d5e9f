package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/payments"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pagination"
)

var percentCeiling = decimal.NewFromInt(100)

// Service exposes harvest, stock and warehouse inventory operations.
type Service interface {
	CreateHarvest(ctx context.Context, actor auth.Actor, req CreateHarvestRequest) (*HarvestDTO, error)
	ListHarvests(ctx context.Context, actor auth.Actor, params pagination.Params) (*pagination.Page[HarvestDTO], error)
	GetHarvest(ctx context.Context, actor auth.Actor, id uuid.UUID) (*HarvestDTO, error)
	DeleteHarvest(ctx context.Context, actor auth.Actor, id uuid.UUID) error

	GetStock(ctx context.Context, actor auth.Actor, id uuid.UUID) (*StockDTO, error)
	ListStocks(ctx context.Context, actor auth.Actor) ([]StockDTO, error)
	RecordMovement(ctx context.Context, actor auth.Actor, stockID uuid.UUID, req MovementRequest) (*MovementDTO, error)
	ListMovements(ctx context.Context, actor auth.Actor, stockID uuid.UUID) ([]MovementDTO, error)

	CreateWarehouse(ctx context.Context, actor auth.Actor, req CreateWarehouseRequest) (*WarehouseDTO, error)
	ListWarehouses(ctx context.Context, actor auth.Actor) ([]WarehouseDTO, error)
	AddCommodity(ctx context.Context, actor auth.Actor, warehouseID uuid.UUID, req AddCommodityRequest) (*CommodityDTO, error)
	ListCommodities(ctx context.Context, actor auth.Actor, warehouseID uuid.UUID) ([]CommodityDTO, error)
	ChangeInventory(ctx context.Context, actor auth.Actor, commodityID uuid.UUID, req InventoryChangeRequest) (*CommodityDTO, error)
	ListCommodityMovements(ctx context.Context, actor auth.Actor, commodityID uuid.UUID) ([]CommodityMovementDTO, error)
	CapacityReport(ctx context.Context, actor auth.Actor) ([]CapacityReportEntry, error)

	CreateStorageOrder(ctx context.Context, actor auth.Actor, req CreateStorageOrderRequest) (*StorageOrderDTO, error)
	ListStorageOrders(ctx context.Context, actor auth.Actor, status *enums.StorageOrderStatus) ([]StorageOrderDTO, error)
	GetStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*StorageOrderDTO, error)
	ConfirmStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*StorageOrderDTO, error)
	RejectStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID, req RejectStorageOrderRequest) (*StorageOrderDTO, error)
	ExportStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*StorageOrderDTO, error)
	DeleteStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the inventory service dependencies. Charger may be
// nil, in which case storage orders cannot be placed.
type ServiceParams struct {
	Repo    Repository
	TX      txRunner
	Charger payments.Charger
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	charger payments.Charger
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.TX,
		charger: params.Charger,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) CreateHarvest(ctx context.Context, actor auth.Actor, req CreateHarvestRequest) (*HarvestDTO, error) {
	if actor.Role != enums.RoleFarmer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can record harvests")
	}
	harvestDate, err := time.Parse(dateLayout, strings.TrimSpace(req.HarvestDate))
	if err != nil {
		return nil, pkgerrors.Validation("harvest_date", "harvest_date must be YYYY-MM-DD")
	}
	if harvestDate.After(s.now().UTC()) {
		return nil, pkgerrors.Validation("harvest_date", "harvest_date cannot be in the future")
	}
	if !req.Quantity.IsPositive() {
		return nil, pkgerrors.Validation("quantity", "quantity must be greater than zero")
	}
	if !req.QualityGrade.IsValid() {
		return nil, pkgerrors.Validation("quality_grade", "invalid quality grade")
	}
	if err := validatePercent("moisture_content", req.MoistureContent); err != nil {
		return nil, err
	}
	if err := validatePercent("oil_content", req.OilContent); err != nil {
		return nil, err
	}

	harvest := &models.SunflowerHarvest{
		FarmerID:        actor.UserID,
		HarvestDate:     harvestDate,
		Quantity:        req.Quantity,
		QualityGrade:    req.QualityGrade,
		MoistureContent: req.MoistureContent,
		OilContent:      req.OilContent,
		District:        strings.TrimSpace(req.District),
		Sector:          strings.TrimSpace(req.Sector),
		Cell:            strings.TrimSpace(req.Cell),
		Village:         strings.TrimSpace(req.Village),
	}
	stock := &models.HarvestStock{CurrentQuantity: req.Quantity}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateHarvest(ctx, harvest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create harvest")
		}
		stock.HarvestID = harvest.ID
		if err := repo.CreateStock(ctx, stock); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create harvest stock")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"harvest_id": harvest.ID.String(),
			"farmer_id":  actor.UserID.String(),
			"quantity":   harvest.Quantity.String(),
		})
		s.logg.Info(logCtx, "harvest recorded")
	}
	return HarvestFromModel(harvest, stock), nil
}

func (s *service) ListHarvests(ctx context.Context, actor auth.Actor, params pagination.Params) (*pagination.Page[HarvestDTO], error) {
	var farmerID *uuid.UUID
	switch {
	case actor.IsStaff():
	case actor.Role == enums.RoleFarmer:
		id := actor.UserID
		farmerID = &id
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "harvests are visible to farmers and staff only")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	rows, err := s.repo.ListHarvests(ctx, farmerID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list harvests")
	}
	page := pagination.Trim(rows, params.Limit, func(h models.SunflowerHarvest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: h.CreatedAt, ID: h.ID}
	})

	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, h := range page.Items {
		ids = append(ids, h.ID)
	}
	stocks, err := s.repo.FindStocksByHarvest(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load harvest stock")
	}
	byHarvest := make(map[uuid.UUID]*models.HarvestStock, len(stocks))
	for i := range stocks {
		byHarvest[stocks[i].HarvestID] = &stocks[i]
	}

	items := make([]HarvestDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *HarvestFromModel(&page.Items[i], byHarvest[page.Items[i].ID]))
	}
	return &pagination.Page[HarvestDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) GetHarvest(ctx context.Context, actor auth.Actor, id uuid.UUID) (*HarvestDTO, error) {
	harvest, err := s.loadHarvest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, harvest); err != nil {
		return nil, err
	}
	stocks, err := s.repo.FindStocksByHarvest(ctx, []uuid.UUID{harvest.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load harvest stock")
	}
	var stock *models.HarvestStock
	if len(stocks) > 0 {
		stock = &stocks[0]
	}
	return HarvestFromModel(harvest, stock), nil
}

func (s *service) DeleteHarvest(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		harvest, err := s.loadHarvest(ctx, repo, id)
		if err != nil {
			return err
		}
		if harvest.FarmerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the farmer who recorded the harvest can delete it")
		}
		stocks, err := repo.FindStocksByHarvest(ctx, []uuid.UUID{harvest.ID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load harvest stock")
		}
		for _, stock := range stocks {
			count, err := repo.CountListingsForStock(ctx, stock.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count listings")
			}
			if count > 0 {
				return pkgerrors.StateConflict("harvest", "harvest has listings and cannot be deleted")
			}
		}
		if err := repo.DeleteHarvest(ctx, harvest.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete harvest")
		}
		return nil
	})
}

func (s *service) GetStock(ctx context.Context, actor auth.Actor, id uuid.UUID) (*StockDTO, error) {
	stock, harvest, err := s.loadStock(ctx, s.repo, id, false)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, harvest); err != nil {
		return nil, err
	}
	return StockFromModel(stock), nil
}

func (s *service) ListStocks(ctx context.Context, actor auth.Actor) ([]StockDTO, error) {
	var farmerID *uuid.UUID
	switch {
	case actor.IsStaff():
	case actor.Role == enums.RoleFarmer:
		id := actor.UserID
		farmerID = &id
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "stock is visible to farmers and staff only")
	}
	rows, err := s.repo.ListStocks(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock")
	}
	out := make([]StockDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *StockFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) RecordMovement(ctx context.Context, actor auth.Actor, stockID uuid.UUID, req MovementRequest) (*MovementDTO, error) {
	if !req.MovementType.IsValid() {
		return nil, pkgerrors.Validation("movement_type", "invalid movement type")
	}
	if !req.Quantity.IsPositive() {
		return nil, pkgerrors.Validation("quantity", "quantity must be greater than zero")
	}
	if req.MovementType == enums.MovementTransfer && !hasDestination(req) {
		return nil, pkgerrors.Validation("to_district", "destination location required for transfers")
	}

	var movement *models.HarvestMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stock, harvest, err := s.loadStock(ctx, repo, stockID, true)
		if err != nil {
			return err
		}
		if harvest.FarmerID != actor.UserID && actor.Role != enums.RoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owning farmer can move this stock")
		}

		switch {
		case req.MovementType.Decrements():
			if !CanRemove(stock.CurrentQuantity, req.Quantity) {
				return insufficientStock(stock.CurrentQuantity)
			}
			stock.CurrentQuantity = stock.CurrentQuantity.Sub(req.Quantity)
		case req.MovementType == enums.MovementIn:
			if !CanAdd(stock.CurrentQuantity, harvest.Quantity, req.Quantity) {
				return pkgerrors.StateConflict("quantity", "stock cannot exceed the original harvest quantity")
			}
			stock.CurrentQuantity = stock.CurrentQuantity.Add(req.Quantity)
		}

		movement = newMovement(stock, harvest, req.MovementType, req.Quantity, actor.UserID)
		movement.ToDistrict = trimmed(req.ToDistrict)
		movement.ToSector = trimmed(req.ToSector)
		movement.ToCell = trimmed(req.ToCell)
		movement.ToVillage = trimmed(req.ToVillage)
		movement.Notes = strings.TrimSpace(req.Notes)

		if err := repo.CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create movement")
		}
		if req.MovementType != enums.MovementAdjustment {
			if err := repo.SaveStock(ctx, stock); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := MovementFromModel(*movement)
	return &dto, nil
}

func (s *service) ListMovements(ctx context.Context, actor auth.Actor, stockID uuid.UUID) ([]MovementDTO, error) {
	_, harvest, err := s.loadStock(ctx, s.repo, stockID, false)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, harvest); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMovements(ctx, stockID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	out := make([]MovementDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, MovementFromModel(row))
	}
	return out, nil
}

func (s *service) loadHarvest(ctx context.Context, repo Repository, id uuid.UUID) (*models.SunflowerHarvest, error) {
	harvest, err := repo.FindHarvest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "harvest not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load harvest")
	}
	return harvest, nil
}

func (s *service) loadStock(ctx context.Context, repo Repository, id uuid.UUID, lock bool) (*models.HarvestStock, *models.SunflowerHarvest, error) {
	find := repo.FindStock
	if lock {
		find = repo.FindStockForUpdate
	}
	stock, err := find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	harvest, err := s.loadHarvest(ctx, repo, stock.HarvestID)
	if err != nil {
		return nil, nil, err
	}
	return stock, harvest, nil
}

func canView(actor auth.Actor, harvest *models.SunflowerHarvest) error {
	if actor.IsStaff() || harvest.FarmerID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "harvest belongs to another farmer")
}

func newMovement(stock *models.HarvestStock, harvest *models.SunflowerHarvest, kind enums.MovementType, qty decimal.Decimal, actorID uuid.UUID) *models.HarvestMovement {
	movement := &models.HarvestMovement{
		StockID:      stock.ID,
		MovementType: kind,
		Quantity:     qty,
		FromDistrict: harvest.District,
		FromSector:   harvest.Sector,
		FromCell:     harvest.Cell,
		FromVillage:  harvest.Village,
	}
	if actorID != uuid.Nil {
		id := actorID
		movement.CreatedBy = &id
	}
	return movement
}

func validatePercent(field string, value decimal.Decimal) error {
	if value.IsNegative() || value.GreaterThan(percentCeiling) {
		return pkgerrors.Validation(field, field+" must be between 0 and 100")
	}
	return nil
}

func hasDestination(req MovementRequest) bool {
	return trimmed(req.ToDistrict) != nil && trimmed(req.ToSector) != nil &&
		trimmed(req.ToCell) != nil && trimmed(req.ToVillage) != nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func insufficientStock(available decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithDetails(pkgerrors.FieldErrors{
		"quantity": fmt.Sprintf("insufficient stock, only %s kg available", available.StringFixed(2)),
	})
}
