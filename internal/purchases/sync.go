package purchases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/inventory"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/payments"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

// SyncResult is the paid position written by SyncSell.
type SyncResult struct {
	AmountPaid    decimal.Decimal
	PaymentStatus enums.ListingPaymentStatus
	BecamePaid    bool
}

// SyncSell recomputes the paid balance a listing shares with its purchase and
// writes both rows. The balance is the sum of completed listing payments and
// completed purchase payments. Must run inside the caller's transaction with
// both rows loaded for update; purchase may be nil for an unclaimed listing.
func SyncSell(ctx context.Context, repo Repository, sell *models.Sell, purchase *models.Purchase, now time.Time) (SyncResult, error) {
	paid, err := CompletedBalance(ctx, repo, sell.ID, purchase)
	if err != nil {
		return SyncResult{}, err
	}

	sell.TotalAmount = sell.QuantitySold.Mul(sell.UnitPrice)
	if paid.GreaterThan(sell.TotalAmount) {
		return SyncResult{}, pkgerrors.StateConflict("amount_paid", "amount paid cannot exceed the total amount")
	}

	wasPaid := sell.PaymentStatus == enums.ListingPaymentPaid
	sell.AmountPaid = paid
	sell.PaymentStatus = payments.DeriveListingPaymentStatus(paid, sell.TotalAmount)
	if sell.PaymentStatus == enums.ListingPaymentPaid && sell.PaymentCompletedDate == nil {
		completed := now.UTC()
		delivery := DeliveryDate(completed, sell.DeliveryDays)
		sell.PaymentCompletedDate = &completed
		sell.DeliveryDate = &delivery
	}
	if err := WriteSell(ctx, repo, sell); err != nil {
		return SyncResult{}, err
	}

	if purchase != nil {
		mirror(purchase, sell)
		if err := repo.SavePurchase(ctx, purchase); err != nil {
			return SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
		}
	}

	return SyncResult{
		AmountPaid:    paid,
		PaymentStatus: sell.PaymentStatus,
		BecamePaid:    !wasPaid && sell.PaymentStatus == enums.ListingPaymentPaid,
	}, nil
}

// CompletedBalance returns the shared paid balance of a listing and its
// purchase without writing anything.
func CompletedBalance(ctx context.Context, repo Repository, sellID uuid.UUID, purchase *models.Purchase) (decimal.Decimal, error) {
	sellPayments, err := repo.ListSellPayments(ctx, sellID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing payments")
	}
	paid := payments.SumCompletedSellPayments(sellPayments)
	if purchase == nil {
		return paid, nil
	}
	purchasePayments, err := repo.ListPayments(ctx, purchase.ID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase payments")
	}
	return paid.Add(payments.SumCompletedPurchasePayments(purchasePayments)), nil
}

// mirror copies the listing terms and paid position onto the purchase.
func mirror(purchase *models.Purchase, sell *models.Sell) {
	purchase.QuantityPurchased = sell.QuantitySold
	purchase.UnitPrice = sell.UnitPrice
	purchase.TotalAmount = sell.TotalAmount
	purchase.AmountPaid = sell.AmountPaid
	switch purchase.PurchaseStatus {
	case enums.PurchaseStatusDelivered, enums.PurchaseStatusCancelled:
	default:
		purchase.PurchaseStatus = DerivePurchaseStatus(sell.AmountPaid, sell.TotalAmount)
	}
	purchase.CompletedPaymentDate = sell.PaymentCompletedDate
	purchase.ExpectedDeliveryDate = sell.DeliveryDate
}

// OpenPurchase claims a posted listing for buyerID and creates its purchase.
// The claim is a conditional write on the listing version, so of two
// concurrent claims exactly one succeeds.
func OpenPurchase(ctx context.Context, repo Repository, sell *models.Sell, buyerID uuid.UUID, address, deliveryNotes, notes string, now time.Time) (*models.Purchase, error) {
	if sell.SellStatus != enums.SellStatusPosted {
		return nil, pkgerrors.StateConflict("sell_status", "listing is no longer available for purchase")
	}
	if sell.FarmerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "farmers cannot buy their own listings")
	}
	if address == "" {
		return nil, pkgerrors.Validation("delivery_address", "delivery address is required")
	}
	if _, err := repo.FindPurchaseBySell(ctx, sell.ID); err == nil {
		return nil, pkgerrors.StateConflict("sell_id", "listing already has a purchase")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing purchase")
	}

	claimed := now.UTC()
	buyer := buyerID
	sell.BuyerID = &buyer
	sell.PurchasedDate = &claimed
	sell.SellStatus = enums.SellStatusPurchased
	sell.DeliveryAddress = address
	sell.DeliveryNotes = deliveryNotes
	sell.TotalAmount = sell.QuantitySold.Mul(sell.UnitPrice)
	if err := repo.ClaimSell(ctx, sell); err != nil {
		if errors.Is(err, ErrStaleSell) {
			return nil, pkgerrors.StateConflict("sell_status", "listing is no longer available for purchase")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim listing")
	}

	purchase := &models.Purchase{
		BuyerID:         buyerID,
		SellID:          sell.ID,
		DeliveryAddress: address,
		DeliveryNotes:   deliveryNotes,
		Notes:           notes,
		PurchasedDate:   claimed,
		PurchaseStatus:  enums.PurchaseStatusPendingPayment,
	}
	mirror(purchase, sell)
	if err := repo.CreatePurchase(ctx, purchase); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
	}
	return purchase, nil
}

// CompleteDelivery records the single stock-out for a listing, completes the
// listing and marks its purchase delivered.
func CompleteDelivery(ctx context.Context, repo Repository, stock inventory.Repository, sell *models.Sell, purchase *models.Purchase, actorID uuid.UUID, now time.Time) error {
	if sell.SellStatus != enums.SellStatusPurchased {
		return pkgerrors.StateConflict("sell_status", "only purchased listings can be completed")
	}
	if _, err := inventory.ApplySellOut(ctx, stock, sell.HarvestStockID, sell.ID, sell.QuantitySold, actorID); err != nil {
		return err
	}
	sell.SellStatus = enums.SellStatusCompleted
	if err := WriteSell(ctx, repo, sell); err != nil {
		return err
	}
	if purchase == nil {
		return nil
	}
	delivered := DeliveryDate(now, 0)
	purchase.PurchaseStatus = enums.PurchaseStatusDelivered
	purchase.ActualDeliveryDate = &delivered
	if err := repo.SavePurchase(ctx, purchase); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
	}
	return nil
}

// CancelPair cancels a listing and its purchase together. Nothing may have
// been paid.
func CancelPair(ctx context.Context, repo Repository, sell *models.Sell, purchase *models.Purchase) error {
	if sell.SellStatus.IsTerminal() {
		return pkgerrors.StateConflict("sell_status", "listing is already "+sell.SellStatus.String())
	}
	if sell.AmountPaid.IsPositive() || (purchase != nil && purchase.AmountPaid.IsPositive()) {
		return pkgerrors.StateConflict("amount_paid", "cannot cancel a listing with payments")
	}
	sell.SellStatus = enums.SellStatusCancelled
	if err := WriteSell(ctx, repo, sell); err != nil {
		return err
	}
	if purchase == nil {
		return nil
	}
	purchase.PurchaseStatus = enums.PurchaseStatusCancelled
	if err := repo.SavePurchase(ctx, purchase); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
	}
	return nil
}

// WriteSell saves a listing under its version check.
func WriteSell(ctx context.Context, repo Repository, sell *models.Sell) error {
	if err := repo.SaveSell(ctx, sell); err != nil {
		if errors.Is(err, ErrStaleSell) {
			return pkgerrors.StateConflict("sell", "listing was updated by another request, retry")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
	}
	return nil
}
