package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

// ApplySellOut takes a completed listing's quantity out of its stock. repo
// must be bound to the caller's transaction. At most one out movement exists
// per listing.
func ApplySellOut(ctx context.Context, repo Repository, stockID, sellID uuid.UUID, qty decimal.Decimal, actorID uuid.UUID) (*models.HarvestMovement, error) {
	existing, err := repo.CountSellOutMovements(ctx, sellID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check listing stock-out")
	}
	if existing > 0 {
		return nil, pkgerrors.StateConflict("sell_status", "stock for this listing has already been released")
	}

	stock, err := repo.FindStockForUpdate(ctx, stockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	harvest, err := repo.FindHarvest(ctx, stock.HarvestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load harvest")
	}
	if !CanRemove(stock.CurrentQuantity, qty) {
		return nil, insufficientStock(stock.CurrentQuantity)
	}

	stock.CurrentQuantity = stock.CurrentQuantity.Sub(qty)
	movement := newMovement(stock, harvest, enums.MovementOut, qty, actorID)
	sid := sellID
	movement.SellID = &sid
	movement.Notes = "Sale completed for listing " + sellID.String()

	if err := repo.CreateMovement(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock-out movement")
	}
	if err := repo.SaveStock(ctx, stock); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}
	return movement, nil
}
