package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/payments"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

const (
	storageOrderRef       = "ORDER-"
	storageOrderExportRef = "EXPORT-ORDER-"
)

// CreateStorageOrder charges the storage cost and records a pending order.
// Capacity is checked before the charge; nothing is stored when the gateway
// refuses. A pending gateway answer still creates the order, unpaid.
func (s *service) CreateStorageOrder(ctx context.Context, actor auth.Actor, req CreateStorageOrderRequest) (*StorageOrderDTO, error) {
	origin := strings.TrimSpace(req.Origin)
	phone := strings.TrimSpace(req.PhoneNumber)
	switch {
	case req.WarehouseCommodityID == uuid.Nil:
		return nil, pkgerrors.Validation("warehouse_commodity_id", "warehouse_commodity_id is required")
	case origin == "":
		return nil, pkgerrors.Validation("origin", "origin is required")
	case !req.Quantity.IsPositive():
		return nil, pkgerrors.Validation("quantity", "quantity must be greater than zero")
	case !req.CostCharged.IsPositive():
		return nil, pkgerrors.Validation("cost_charged", "cost_charged must be greater than zero")
	case phone == "":
		return nil, pkgerrors.Validation("phone_number", "phone number is required for mobile money payments")
	}
	if err := payments.ValidateChargeAmount(req.CostCharged); err != nil {
		return nil, pkgerrors.Validation("cost_charged", "cost_charged must be a whole amount of at least 1")
	}
	if s.charger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mobile money payments are not available")
	}

	var warehouseID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		commodity, err := s.repo.WithTx(tx).FindCommodityForUpdate(ctx, req.WarehouseCommodityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Validation("warehouse_commodity_id", "warehouse does not stock this commodity")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commodity")
		}
		if !CanAdd(commodity.CurrentQuantity, commodity.MaxCapacity, req.Quantity) {
			return capacityExceeded(commodity)
		}
		warehouseID = commodity.WarehouseID
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome, chargeErr := s.charger.Charge(ctx, req.CostCharged, phone)
	if chargeErr != nil {
		s.warnOrder(ctx, "storage order charge failed", actor, chargeErr.Error())
		return nil, payments.ChargeError(chargeErr)
	}
	if outcome.Status == payments.OutcomeFailed {
		s.warnOrder(ctx, "storage order charge rejected", actor, outcome.RawStatus)
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "payment gateway rejected the charge")
	}

	order := &models.StorageOrder{
		UserID:               actor.UserID,
		WarehouseID:          warehouseID,
		WarehouseCommodityID: req.WarehouseCommodityID,
		Origin:               origin,
		Quantity:             req.Quantity,
		CostCharged:          req.CostCharged,
		PhoneNumber:          phone,
		Status:               enums.StorageOrderPending,
		AvailabilityStatus:   enums.StorageWaiting,
		IsPaid:               outcome.Status == payments.OutcomeSuccess,
	}
	if outcome.Ref != "" {
		ref := outcome.Ref
		order.PayPackRef = &ref
	}
	if outcome.RawStatus != "" {
		raw := outcome.RawStatus
		order.PayPackStatus = &raw
	}
	if err := s.repo.CreateStorageOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create storage order")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"storage_order_id": order.ID.String(),
			"user_id":          actor.UserID.String(),
			"is_paid":          order.IsPaid,
		})
		s.logg.Info(logCtx, "storage order created")
	}
	return StorageOrderFromModel(order), nil
}

// ListStorageOrders returns the actor's own orders, or for staff the orders
// placed on the warehouses they run.
func (s *service) ListStorageOrders(ctx context.Context, actor auth.Actor, status *enums.StorageOrderStatus) ([]StorageOrderDTO, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.Validation("status", "status must be pending, confirmed or rejected")
	}
	filter := StorageOrderFilter{Status: status}
	if actor.IsStaff() {
		owner, err := warehouseScope(actor)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			warehouses, err := s.repo.ListWarehouses(ctx, owner)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list warehouses")
			}
			filter.WarehouseIDs = make([]uuid.UUID, 0, len(warehouses))
			for _, w := range warehouses {
				filter.WarehouseIDs = append(filter.WarehouseIDs, w.ID)
			}
		}
	} else {
		id := actor.UserID
		filter.UserID = &id
	}

	rows, err := s.repo.ListStorageOrders(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list storage orders")
	}
	out := make([]StorageOrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *StorageOrderFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) GetStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*StorageOrderDTO, error) {
	order, err := findStorageOrder(ctx, s.repo, id, false)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID {
		if _, err := s.loadWarehouse(ctx, s.repo, actor, order.WarehouseID); err != nil {
			return nil, err
		}
	}
	return StorageOrderFromModel(order), nil
}

// ConfirmStorageOrder imports the ordered quantity into the warehouse. The
// capacity guard runs again because stock may have moved since the order
// was placed.
func (s *service) ConfirmStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*StorageOrderDTO, error) {
	return s.reviewStorageOrder(ctx, actor, id, func(repo Repository, order *models.StorageOrder) error {
		if order.Status != enums.StorageOrderPending {
			return pkgerrors.StateConflict("status", "only pending orders can be confirmed")
		}
		commodity, err := s.loadCommodity(ctx, repo, actor, order.WarehouseCommodityID)
		if err != nil {
			return err
		}
		notes := fmt.Sprintf("storage order confirmed, origin: %s", order.Origin)
		if err := addQuantity(ctx, repo, commodity, order.Quantity, storageOrderRef+order.ID.String(), notes, actor.UserID); err != nil {
			return err
		}
		order.Status = enums.StorageOrderConfirmed
		order.AvailabilityStatus = enums.StorageImported
		return nil
	})
}

func (s *service) RejectStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID, req RejectStorageOrderRequest) (*StorageOrderDTO, error) {
	return s.reviewStorageOrder(ctx, actor, id, func(_ Repository, order *models.StorageOrder) error {
		if order.Status != enums.StorageOrderPending {
			return pkgerrors.StateConflict("status", "only pending orders can be rejected")
		}
		order.Status = enums.StorageOrderRejected
		order.RejectionReason = strings.TrimSpace(req.Reason)
		return nil
	})
}

// ExportStorageOrder takes an imported order back out of the warehouse.
func (s *service) ExportStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*StorageOrderDTO, error) {
	return s.reviewStorageOrder(ctx, actor, id, func(repo Repository, order *models.StorageOrder) error {
		if order.Status != enums.StorageOrderConfirmed || order.AvailabilityStatus != enums.StorageImported {
			return pkgerrors.StateConflict("availability_status", "only confirmed and imported orders can be exported")
		}
		commodity, err := s.loadCommodity(ctx, repo, actor, order.WarehouseCommodityID)
		if err != nil {
			return err
		}
		notes := fmt.Sprintf("storage order exported, destination: %s", order.Origin)
		if err := removeQuantity(ctx, repo, commodity, enums.MovementOut, order.Quantity, storageOrderExportRef+order.ID.String(), notes, actor.UserID); err != nil {
			return err
		}
		order.AvailabilityStatus = enums.StorageExported
		return nil
	})
}

// DeleteStorageOrder withdraws an order that has not been reviewed yet.
func (s *service) DeleteStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := findStorageOrder(ctx, repo, id, true)
		if err != nil {
			return err
		}
		if order.UserID != actor.UserID && actor.Role != enums.RoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only delete your own storage orders")
		}
		if order.Status != enums.StorageOrderPending {
			return pkgerrors.StateConflict("status", "only pending orders can be deleted")
		}
		if err := repo.DeleteStorageOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete storage order")
		}
		return nil
	})
}

// reviewStorageOrder locks the order, checks the actor runs its warehouse,
// applies step and saves the result in one transaction.
func (s *service) reviewStorageOrder(ctx context.Context, actor auth.Actor, id uuid.UUID, step func(repo Repository, order *models.StorageOrder) error) (*StorageOrderDTO, error) {
	var result *models.StorageOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := findStorageOrder(ctx, repo, id, true)
		if err != nil {
			return err
		}
		if _, err := s.loadWarehouse(ctx, repo, actor, order.WarehouseID); err != nil {
			return err
		}
		if err := step(repo, order); err != nil {
			return err
		}
		if err := repo.SaveStorageOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update storage order")
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"storage_order_id":    result.ID.String(),
			"status":              result.Status,
			"availability_status": result.AvailabilityStatus,
		})
		s.logg.Info(logCtx, "storage order reviewed")
	}
	return StorageOrderFromModel(result), nil
}

func findStorageOrder(ctx context.Context, repo Repository, id uuid.UUID, lock bool) (*models.StorageOrder, error) {
	find := repo.FindStorageOrder
	if lock {
		find = repo.FindStorageOrderForUpdate
	}
	order, err := find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "storage order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storage order")
	}
	return order, nil
}

func (s *service) warnOrder(ctx context.Context, msg string, actor auth.Actor, reason string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": actor.UserID.String(),
		"reason":  reason,
	})
	s.logg.Warn(logCtx, msg)
}
