package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

const defaultUnit = "kg"

func (s *service) CreateWarehouse(ctx context.Context, actor auth.Actor, req CreateWarehouseRequest) (*WarehouseDTO, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can register warehouses")
	}
	warehouse := &models.Warehouse{
		OwnerID:  actor.UserID,
		Name:     strings.TrimSpace(req.Name),
		District: strings.TrimSpace(req.District),
		Sector:   strings.TrimSpace(req.Sector),
	}
	if warehouse.Name == "" {
		return nil, pkgerrors.Validation("name", "name is required")
	}
	if err := s.repo.CreateWarehouse(ctx, warehouse); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create warehouse")
	}
	return WarehouseFromModel(warehouse), nil
}

func (s *service) ListWarehouses(ctx context.Context, actor auth.Actor) ([]WarehouseDTO, error) {
	owner, err := warehouseScope(actor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListWarehouses(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list warehouses")
	}
	out := make([]WarehouseDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *WarehouseFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) AddCommodity(ctx context.Context, actor auth.Actor, warehouseID uuid.UUID, req AddCommodityRequest) (*CommodityDTO, error) {
	warehouse, err := s.loadWarehouse(ctx, s.repo, actor, warehouseID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Commodity)
	if name == "" {
		return nil, pkgerrors.Validation("commodity", "commodity is required")
	}
	if req.InitialQuantity.IsNegative() {
		return nil, pkgerrors.Validation("initial_quantity", "initial_quantity cannot be negative")
	}
	if req.MinimumStockLevel.IsNegative() {
		return nil, pkgerrors.Validation("minimum_stock_level", "minimum_stock_level cannot be negative")
	}
	if req.MaxCapacity.IsPositive() && req.InitialQuantity.GreaterThan(req.MaxCapacity) {
		return nil, pkgerrors.Validation("initial_quantity", "initial_quantity exceeds max_capacity")
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = defaultUnit
	}

	commodity := &models.WarehouseCommodity{
		WarehouseID:       warehouse.ID,
		Commodity:         name,
		Unit:              unit,
		CurrentQuantity:   req.InitialQuantity,
		MaxCapacity:       req.MaxCapacity,
		MinimumStockLevel: req.MinimumStockLevel,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateCommodity(ctx, commodity); err != nil {
			if db.IsUniqueViolation(err, "ux_warehouse_commodity") || db.IsUniqueViolation(err, "warehouse_commodities") {
				return pkgerrors.New(pkgerrors.CodeConflict, "commodity already stocked in this warehouse")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commodity")
		}
		if !req.InitialQuantity.IsPositive() {
			return nil
		}
		return recordCommodityMovement(ctx, repo, commodity, enums.MovementIn, req.InitialQuantity, decimal.Zero, "", "initial stock", actor.UserID)
	})
	if err != nil {
		return nil, err
	}
	return CommodityFromModel(commodity), nil
}

func (s *service) ListCommodities(ctx context.Context, actor auth.Actor, warehouseID uuid.UUID) ([]CommodityDTO, error) {
	warehouse, err := s.loadWarehouse(ctx, s.repo, actor, warehouseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListCommodities(ctx, []uuid.UUID{warehouse.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commodities")
	}
	out := make([]CommodityDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *CommodityFromModel(&rows[i]))
	}
	return out, nil
}

// ChangeInventory applies add, remove, adjust or transfer to a commodity
// line. Every change passes the capacity guard and appends a movement.
func (s *service) ChangeInventory(ctx context.Context, actor auth.Actor, commodityID uuid.UUID, req InventoryChangeRequest) (*CommodityDTO, error) {
	var result *models.WarehouseCommodity
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ref := strings.TrimSpace(req.ReferenceNumber)
		notes := strings.TrimSpace(req.Notes)

		if req.Operation == OperationTransfer {
			source, err := s.transfer(ctx, repo, actor, commodityID, req)
			if err != nil {
				return err
			}
			result = source
			return nil
		}

		commodity, err := s.loadCommodity(ctx, repo, actor, commodityID)
		if err != nil {
			return err
		}
		switch req.Operation {
		case OperationAdd:
			err = addQuantity(ctx, repo, commodity, req.Quantity, ref, notes, actor.UserID)
		case OperationRemove:
			err = removeQuantity(ctx, repo, commodity, enums.MovementOut, req.Quantity, ref, notes, actor.UserID)
		case OperationAdjust:
			err = adjustQuantity(ctx, repo, commodity, req.Quantity, ref, notes, actor.UserID)
		default:
			err = pkgerrors.Validation("operation", "operation must be add, remove, adjust or transfer")
		}
		if err != nil {
			return err
		}
		result = commodity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return CommodityFromModel(result), nil
}

// transferLockOrder returns the two commodity ids in the order their rows are
// locked. Every transfer takes the lower id first, whatever its direction.
func transferLockOrder(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

func (s *service) transfer(ctx context.Context, repo Repository, actor auth.Actor, sourceID uuid.UUID, req InventoryChangeRequest) (*models.WarehouseCommodity, error) {
	if req.TargetID == nil || *req.TargetID == uuid.Nil {
		return nil, pkgerrors.Validation("target_commodity_id", "target_commodity_id is required for transfers")
	}
	if *req.TargetID == sourceID {
		return nil, pkgerrors.Validation("target_commodity_id", "cannot transfer to the same commodity line")
	}
	if !req.Quantity.IsPositive() {
		return nil, pkgerrors.Validation("quantity", "quantity must be greater than zero")
	}

	firstID, secondID := transferLockOrder(sourceID, *req.TargetID)
	first, err := s.loadCommodity(ctx, repo, actor, firstID)
	if err != nil {
		return nil, err
	}
	second, err := s.loadCommodity(ctx, repo, actor, secondID)
	if err != nil {
		return nil, err
	}
	source, target := first, second
	if source.ID != sourceID {
		source, target = second, first
	}

	if !strings.EqualFold(target.Commodity, source.Commodity) {
		return nil, pkgerrors.Validation("target_commodity_id", "target holds a different commodity")
	}
	if !CanRemove(source.CurrentQuantity, req.Quantity) {
		return nil, insufficientStock(source.CurrentQuantity)
	}
	if !CanAdd(target.CurrentQuantity, target.MaxCapacity, req.Quantity) {
		return nil, capacityExceeded(target)
	}

	ref := strings.TrimSpace(req.ReferenceNumber)
	notes := strings.TrimSpace(req.Notes)
	if err := removeQuantity(ctx, repo, source, enums.MovementTransfer, req.Quantity, ref, "transfer out: "+notes, actor.UserID); err != nil {
		return nil, err
	}
	before := target.CurrentQuantity
	target.CurrentQuantity = before.Add(req.Quantity)
	if err := repo.SaveCommodity(ctx, target); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update target commodity")
	}
	if err := recordCommodityMovement(ctx, repo, target, enums.MovementTransfer, req.Quantity, before, ref, "transfer in: "+notes, actor.UserID); err != nil {
		return nil, err
	}
	return source, nil
}

func (s *service) ListCommodityMovements(ctx context.Context, actor auth.Actor, commodityID uuid.UUID) ([]CommodityMovementDTO, error) {
	commodity, err := s.loadCommodity(ctx, s.repo, actor, commodityID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListCommodityMovements(ctx, commodity.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commodity movements")
	}
	out := make([]CommodityMovementDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CommodityMovementFromModel(row))
	}
	return out, nil
}

func (s *service) CapacityReport(ctx context.Context, actor auth.Actor) ([]CapacityReportEntry, error) {
	owner, err := warehouseScope(actor)
	if err != nil {
		return nil, err
	}
	warehouses, err := s.repo.ListWarehouses(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list warehouses")
	}
	names := make(map[uuid.UUID]string, len(warehouses))
	ids := make([]uuid.UUID, 0, len(warehouses))
	for _, w := range warehouses {
		names[w.ID] = w.Name
		ids = append(ids, w.ID)
	}
	commodities, err := s.repo.ListCommodities(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commodities")
	}

	report := make([]CapacityReportEntry, 0, len(commodities))
	for _, c := range commodities {
		utilisation := decimal.Zero
		if c.MaxCapacity.IsPositive() {
			utilisation = c.CurrentQuantity.Div(c.MaxCapacity).Mul(percentCeiling).Round(2)
		}
		report = append(report, CapacityReportEntry{
			WarehouseID:     c.WarehouseID,
			WarehouseName:   names[c.WarehouseID],
			CommodityID:     c.ID,
			Commodity:       c.Commodity,
			CurrentQuantity: c.CurrentQuantity,
			MaxCapacity:     c.MaxCapacity,
			UtilisationPct:  utilisation,
			LowStock:        c.CurrentQuantity.LessThanOrEqual(c.MinimumStockLevel),
		})
	}
	return report, nil
}

func addQuantity(ctx context.Context, repo Repository, c *models.WarehouseCommodity, qty decimal.Decimal, ref, notes string, actorID uuid.UUID) error {
	if !qty.IsPositive() {
		return pkgerrors.Validation("quantity", "quantity must be greater than zero")
	}
	if !CanAdd(c.CurrentQuantity, c.MaxCapacity, qty) {
		return capacityExceeded(c)
	}
	before := c.CurrentQuantity
	c.CurrentQuantity = before.Add(qty)
	if err := repo.SaveCommodity(ctx, c); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commodity")
	}
	return recordCommodityMovement(ctx, repo, c, enums.MovementIn, qty, before, ref, notes, actorID)
}

func removeQuantity(ctx context.Context, repo Repository, c *models.WarehouseCommodity, kind enums.MovementType, qty decimal.Decimal, ref, notes string, actorID uuid.UUID) error {
	if !qty.IsPositive() {
		return pkgerrors.Validation("quantity", "quantity must be greater than zero")
	}
	if !CanRemove(c.CurrentQuantity, qty) {
		return insufficientStock(c.CurrentQuantity)
	}
	before := c.CurrentQuantity
	c.CurrentQuantity = before.Sub(qty)
	if err := repo.SaveCommodity(ctx, c); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commodity")
	}
	return recordCommodityMovement(ctx, repo, c, kind, qty, before, ref, notes, actorID)
}

// adjustQuantity sets an absolute level. Raising the level is still bound by
// capacity; lowering it only needs the result to stay non-negative. A no-op
// adjustment is rejected so every movement records a real change.
func adjustQuantity(ctx context.Context, repo Repository, c *models.WarehouseCommodity, level decimal.Decimal, ref, notes string, actorID uuid.UUID) error {
	if level.IsNegative() {
		return pkgerrors.Validation("quantity", "new quantity cannot be negative")
	}
	before := c.CurrentQuantity
	delta := level.Sub(before)
	if delta.IsZero() {
		return pkgerrors.Validation("quantity", "new quantity equals the current quantity")
	}
	if delta.IsPositive() && !CanAdd(before, c.MaxCapacity, delta) {
		return capacityExceeded(c)
	}
	c.CurrentQuantity = level
	if err := repo.SaveCommodity(ctx, c); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commodity")
	}
	return recordCommodityMovement(ctx, repo, c, enums.MovementAdjustment, delta.Abs(), before, ref, notes, actorID)
}

func recordCommodityMovement(ctx context.Context, repo Repository, c *models.WarehouseCommodity, kind enums.MovementType, qty, before decimal.Decimal, ref, notes string, actorID uuid.UUID) error {
	movement := &models.CommodityMovement{
		WarehouseCommodityID: c.ID,
		MovementType:         kind,
		Quantity:             qty,
		QuantityBefore:       before,
		QuantityAfter:        c.CurrentQuantity,
		ReferenceNumber:      ref,
		Notes:                notes,
	}
	if actorID != uuid.Nil {
		id := actorID
		movement.CreatedBy = &id
	}
	if err := repo.CreateCommodityMovement(ctx, movement); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record commodity movement")
	}
	return nil
}

func (s *service) loadWarehouse(ctx context.Context, repo Repository, actor auth.Actor, id uuid.UUID) (*models.Warehouse, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "warehouses are managed by staff only")
	}
	warehouse, err := repo.FindWarehouse(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
	}
	if actor.Role != enums.RoleAdmin && warehouse.OwnerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "warehouse belongs to another officer")
	}
	return warehouse, nil
}

func (s *service) loadCommodity(ctx context.Context, repo Repository, actor auth.Actor, id uuid.UUID) (*models.WarehouseCommodity, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "warehouses are managed by staff only")
	}
	commodity, err := repo.FindCommodityForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commodity not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commodity")
	}
	if _, err := s.loadWarehouse(ctx, repo, actor, commodity.WarehouseID); err != nil {
		return nil, err
	}
	return commodity, nil
}

// warehouseScope returns nil for admins (all warehouses) and the officer's
// own id otherwise.
func warehouseScope(actor auth.Actor) (*uuid.UUID, error) {
	switch actor.Role {
	case enums.RoleAdmin:
		return nil, nil
	case enums.RoleMinagriOfficer:
		id := actor.UserID
		return &id, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "warehouses are managed by staff only")
	}
}

func capacityExceeded(c *models.WarehouseCommodity) error {
	available := c.MaxCapacity.Sub(c.CurrentQuantity)
	return pkgerrors.New(pkgerrors.CodeStateConflict, "capacity exceeded").WithDetails(pkgerrors.FieldErrors{
		"quantity": "quantity exceeds remaining capacity of " + available.StringFixed(2) + " " + c.Unit,
	})
}
