package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/inventory"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/payments"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/purchases"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pagination"
)

// Service exposes the listing lifecycle: post, claim, pay, deliver, cancel.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateListingRequest) (*ListingDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, req UpdateListingRequest) (*ListingDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ListingDTO, error)

	Available(ctx context.Context, params pagination.Params) (*pagination.Page[ListingDTO], error)
	Mine(ctx context.Context, actor auth.Actor, params pagination.Params) (*pagination.Page[ListingDTO], error)
	Claimed(ctx context.Context, actor auth.Actor, params pagination.Params) (*pagination.Page[ListingDTO], error)
	ListAll(ctx context.Context, actor auth.Actor, params pagination.Params) (*pagination.Page[ListingDTO], error)
	ListByFarmer(ctx context.Context, actor auth.Actor, farmerID uuid.UUID, params pagination.Params) (*pagination.Page[ListingDTO], error)
	ListByBuyer(ctx context.Context, actor auth.Actor, buyerID uuid.UUID, params pagination.Params) (*pagination.Page[ListingDTO], error)

	Claim(ctx context.Context, actor auth.Actor, id uuid.UUID, req ClaimRequest) (*ListingDTO, error)
	RecordPayment(ctx context.Context, actor auth.Actor, id uuid.UUID, req RecordPaymentRequest) (*PaymentResult, error)
	UpdatePaymentStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, req PaymentStatusRequest) (*ListingDTO, error)
	Payments(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]SellPaymentDTO, error)
	Complete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ListingDTO, error)
	Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ListingDTO, error)

	UpdateDeliveryInfo(ctx context.Context, actor auth.Actor, id uuid.UUID, req DeliveryInfoRequest) (*ListingDTO, error)
	DeliverySchedule(ctx context.Context, actor auth.Actor) (*DeliveriesDTO, error)
	OverdueDeliveries(ctx context.Context, actor auth.Actor) (*DeliveriesDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the listing service dependencies.
type ServiceParams struct {
	Repo        Repository
	Purchases   purchases.Repository
	Inventory   inventory.Repository
	TX          txRunner
	Outbox      outbox.Emitter
	Marketplace config.MarketplaceConfig
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        Repository
	purchases   purchases.Repository
	inventory   inventory.Repository
	tx          txRunner
	outbox      outbox.Emitter
	marketplace config.MarketplaceConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService wires the listing service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	marketplace := params.Marketplace
	if marketplace.DefaultDeliveryDays <= 0 {
		marketplace.DefaultDeliveryDays = 7
	}
	if marketplace.MaxDeliveryDays < marketplace.DefaultDeliveryDays {
		marketplace.MaxDeliveryDays = 365
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		purchases:   params.Purchases,
		inventory:   params.Inventory,
		tx:          params.TX,
		outbox:      params.Outbox,
		marketplace: marketplace,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateListingRequest) (*ListingDTO, error) {
	if actor.Role != enums.RoleFarmer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can post listings")
	}
	deliveryDays := s.marketplace.DefaultDeliveryDays
	if req.DeliveryDays != nil {
		deliveryDays = *req.DeliveryDays
	}
	if err := s.validateTerms(req.QuantitySold, req.UnitPrice, deliveryDays); err != nil {
		return nil, err
	}

	sell := &models.Sell{
		FarmerID:       actor.UserID,
		HarvestStockID: req.HarvestStockID,
		QuantitySold:   req.QuantitySold,
		UnitPrice:      req.UnitPrice,
		TotalAmount:    req.QuantitySold.Mul(req.UnitPrice),
		DeliveryDays:   deliveryDays,
		SellStatus:     enums.SellStatusPosted,
		PaymentStatus:  enums.ListingPaymentUnpaid,
		AmountPaid:     decimal.Zero,
		Notes:          strings.TrimSpace(req.Notes),
	}

	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.checkStock(ctx, s.inventory.WithTx(tx), actor.UserID, req.HarvestStockID, req.QuantitySold); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, sell); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
		}
		return purchases.EmitPosted(ctx, s.outbox, tx, actor, sell, now)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "listing posted", map[string]any{
		"sell_id":   sell.ID.String(),
		"farmer_id": actor.UserID.String(),
		"quantity":  sell.QuantitySold.String(),
	})
	return ListingFromModel(sell, now), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, req UpdateListingRequest) (*ListingDTO, error) {
	var sell *models.Sell
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.purchases.WithTx(tx)
		var err error
		sell, err = loadSell(ctx, repo, id)
		if err != nil {
			return err
		}
		if actor.Role != enums.RoleFarmer || sell.FarmerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only update your own listings")
		}
		if sell.SellStatus != enums.SellStatusPosted {
			return pkgerrors.StateConflict("sell_status", "only posted listings can be updated")
		}

		if req.QuantitySold != nil {
			sell.QuantitySold = *req.QuantitySold
		}
		if req.UnitPrice != nil {
			sell.UnitPrice = *req.UnitPrice
		}
		if req.DeliveryDays != nil {
			sell.DeliveryDays = *req.DeliveryDays
		}
		if req.Notes != nil {
			sell.Notes = strings.TrimSpace(*req.Notes)
		}
		if err := s.validateTerms(sell.QuantitySold, sell.UnitPrice, sell.DeliveryDays); err != nil {
			return err
		}
		if req.QuantitySold != nil {
			if err := s.checkStock(ctx, s.inventory.WithTx(tx), actor.UserID, sell.HarvestStockID, sell.QuantitySold); err != nil {
				return err
			}
		}
		sell.TotalAmount = sell.QuantitySold.Mul(sell.UnitPrice)
		return purchases.WriteSell(ctx, repo, sell)
	})
	if err != nil {
		return nil, err
	}
	return ListingFromModel(sell, s.now()), nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sell, err := loadSell(ctx, s.purchases.WithTx(tx), id)
		if err != nil {
			return err
		}
		owner := actor.Role == enums.RoleFarmer && sell.FarmerID == actor.UserID
		if !owner && actor.Role != enums.RoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only delete your own listings")
		}
		if sell.SellStatus != enums.SellStatusPosted {
			return pkgerrors.StateConflict("sell_status", "only posted listings can be deleted")
		}
		repo := s.repo.WithTx(tx)
		count, err := repo.CountPayments(ctx, sell.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count listing payments")
		}
		if count > 0 {
			return pkgerrors.StateConflict("payments", "cannot delete a listing with payment records")
		}
		if err := repo.Delete(ctx, sell.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete listing")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.info(ctx, "listing deleted", map[string]any{"sell_id": id.String()})
	return nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ListingDTO, error) {
	sell, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, sell); err != nil {
		return nil, err
	}
	return ListingFromModel(sell, s.now()), nil
}

func (s *service) Available(ctx context.Context, params pagination.Params) (*pagination.Page[ListingDTO], error) {
	return s.page(ctx, ListFilter{Statuses: []enums.SellStatus{enums.SellStatusPosted}}, params)
}

func (s *service) Mine(ctx context.Context, actor auth.Actor, params pagination.Params) (*pagination.Page[ListingDTO], error) {
	if actor.Role != enums.RoleFarmer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers have listings")
	}
	id := actor.UserID
	return s.page(ctx, ListFilter{FarmerID: &id}, params)
}

func (s *service) Claimed(ctx context.Context, actor auth.Actor, params pagination.Params) (*pagination.Page[ListingDTO], error) {
	if actor.Role != enums.RoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers have claimed listings")
	}
	id := actor.UserID
	return s.page(ctx, ListFilter{BuyerID: &id}, params)
}

func (s *service) ListAll(ctx context.Context, actor auth.Actor, params pagination.Params) (*pagination.Page[ListingDTO], error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	return s.page(ctx, ListFilter{}, params)
}

func (s *service) ListByFarmer(ctx context.Context, actor auth.Actor, farmerID uuid.UUID, params pagination.Params) (*pagination.Page[ListingDTO], error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	return s.page(ctx, ListFilter{FarmerID: &farmerID}, params)
}

func (s *service) ListByBuyer(ctx context.Context, actor auth.Actor, buyerID uuid.UUID, params pagination.Params) (*pagination.Page[ListingDTO], error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	return s.page(ctx, ListFilter{BuyerID: &buyerID}, params)
}

// Claim reserves a posted listing for the buyer and opens its purchase.
func (s *service) Claim(ctx context.Context, actor auth.Actor, id uuid.UUID, req ClaimRequest) (*ListingDTO, error) {
	if actor.Role != enums.RoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can purchase listings")
	}
	address := strings.TrimSpace(req.DeliveryAddress)
	if address == "" {
		return nil, pkgerrors.Validation("delivery_address", "delivery address is required")
	}

	var sell *models.Sell
	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.purchases.WithTx(tx)
		var err error
		sell, err = loadSell(ctx, repo, id)
		if err != nil {
			return err
		}
		purchase, err := purchases.OpenPurchase(ctx, repo, sell, actor.UserID, address, strings.TrimSpace(req.DeliveryNotes), strings.TrimSpace(req.Notes), now)
		if err != nil {
			return err
		}
		return purchases.EmitClaimed(ctx, s.outbox, tx, actor, sell, purchase, now)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "listing claimed", map[string]any{
		"sell_id":  sell.ID.String(),
		"buyer_id": actor.UserID.String(),
	})
	return ListingFromModel(sell, now), nil
}

// RecordPayment stores a completed offline payment and re-derives the
// listing's paid position from every completed payment.
func (s *service) RecordPayment(ctx context.Context, actor auth.Actor, id uuid.UUID, req RecordPaymentRequest) (*PaymentResult, error) {
	if !req.PaymentMethod.IsListingMethod() {
		return nil, pkgerrors.Validation("payment_method", "invalid payment method for a listing")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.Validation("amount", "amount must be greater than zero")
	}
	now := s.now()
	paymentDate := purchases.DeliveryDate(now, 0)
	if raw := strings.TrimSpace(req.PaymentDate); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, pkgerrors.Validation("payment_date", "payment_date must be YYYY-MM-DD")
		}
		paymentDate = parsed
	}

	payer := actor.UserID
	completedAt := now.UTC()
	payment := &models.SellPayment{
		Amount:          req.Amount,
		PaymentDate:     paymentDate,
		PaymentMethod:   req.PaymentMethod,
		Status:          enums.PaymentStatusCompleted,
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Notes:           strings.TrimSpace(req.Notes),
		PaidBy:          &payer,
		CompletedDate:   &completedAt,
	}

	var sell *models.Sell
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.purchases.WithTx(tx)
		var (
			purchase *models.Purchase
			err      error
		)
		sell, purchase, err = lockListing(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := canPay(actor, sell); err != nil {
			return err
		}
		if sell.SellStatus != enums.SellStatusPurchased && sell.SellStatus != enums.SellStatusCompleted {
			return pkgerrors.StateConflict("sell_status", "payments can only be recorded for purchased or completed listings")
		}
		completed, err := purchases.CompletedBalance(ctx, repo, sell.ID, purchase)
		if err != nil {
			return err
		}
		if err := payments.ValidateAmount(req.Amount, sell.QuantitySold.Mul(sell.UnitPrice), completed); err != nil {
			return err
		}

		payment.SellID = sell.ID
		if err := s.repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing payment")
		}
		return s.settle(ctx, tx, repo, actor, sell, purchase, payment, now)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "listing payment recorded", map[string]any{
		"sell_id":        sell.ID.String(),
		"payment_id":     payment.ID.String(),
		"amount":         payment.Amount.String(),
		"payment_status": sell.PaymentStatus,
	})
	return &PaymentResult{Payment: SellPaymentFromModel(payment), Listing: *ListingFromModel(sell, now)}, nil
}

// UpdatePaymentStatus confirms a listing as fully paid. The submitted amount
// must equal the total; any outstanding balance is booked as one completed
// payment so amount_paid stays the sum of completed payments.
func (s *service) UpdatePaymentStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, req PaymentStatusRequest) (*ListingDTO, error) {
	var sell *models.Sell
	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.purchases.WithTx(tx)
		var (
			purchase *models.Purchase
			err      error
		)
		sell, purchase, err = lockListing(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := canManageDelivery(actor, sell, true); err != nil {
			return err
		}
		if sell.SellStatus != enums.SellStatusPurchased && sell.SellStatus != enums.SellStatusCompleted {
			return pkgerrors.StateConflict("sell_status", "only purchased or completed listings can be marked paid")
		}
		total := sell.QuantitySold.Mul(sell.UnitPrice)
		if !req.AmountPaid.Equal(total) {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount paid must equal the total amount").WithDetails(map[string]any{
				"submitted_amount": req.AmountPaid.StringFixed(2),
				"total_amount":     total.StringFixed(2),
				"difference":       total.Sub(req.AmountPaid).Abs().StringFixed(2),
			})
		}

		completed, err := purchases.CompletedBalance(ctx, repo, sell.ID, purchase)
		if err != nil {
			return err
		}
		outstanding := payments.Remaining(total, completed)
		if !outstanding.IsPositive() {
			_, err := purchases.SyncSell(ctx, repo, sell, purchase, now)
			return err
		}

		payer := actor.UserID
		completedAt := now.UTC()
		notes := strings.TrimSpace(req.Notes)
		if notes == "" {
			notes = "Balance confirmed as paid"
		}
		payment := &models.SellPayment{
			SellID:        sell.ID,
			Amount:        outstanding,
			PaymentDate:   purchases.DeliveryDate(now, 0),
			PaymentMethod: enums.PaymentMethodOther,
			Status:        enums.PaymentStatusCompleted,
			Notes:         notes,
			PaidBy:        &payer,
			CompletedDate: &completedAt,
		}
		if err := s.repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing payment")
		}
		return s.settle(ctx, tx, repo, actor, sell, purchase, payment, now)
	})
	if err != nil {
		return nil, err
	}
	return ListingFromModel(sell, now), nil
}

func (s *service) Payments(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]SellPaymentDTO, error) {
	sell, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManageDelivery(actor, sell, true); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPayments(ctx, sell.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listing payments")
	}
	out := make([]SellPaymentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, SellPaymentFromModel(&rows[i]))
	}
	return out, nil
}

// Complete delivers a purchased listing: stock leaves once and the purchase
// is marked delivered.
func (s *service) Complete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ListingDTO, error) {
	var sell *models.Sell
	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.purchases.WithTx(tx)
		var (
			purchase *models.Purchase
			err      error
		)
		sell, purchase, err = lockListing(ctx, repo, id)
		if err != nil {
			return err
		}
		owner := actor.Role == enums.RoleFarmer && sell.FarmerID == actor.UserID
		if !owner && !actor.IsStaff() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the listing farmer or staff can complete a listing")
		}
		if err := purchases.CompleteDelivery(ctx, repo, s.inventory.WithTx(tx), sell, purchase, actor.UserID, now); err != nil {
			return err
		}
		return purchases.EmitCompleted(ctx, s.outbox, tx, actor, sell, now)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "listing completed", map[string]any{
		"sell_id":  sell.ID.String(),
		"quantity": sell.QuantitySold.String(),
	})
	return ListingFromModel(sell, now), nil
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ListingDTO, error) {
	var sell *models.Sell
	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.purchases.WithTx(tx)
		var (
			purchase *models.Purchase
			err      error
		)
		sell, purchase, err = lockListing(ctx, repo, id)
		if err != nil {
			return err
		}
		owner := actor.Role == enums.RoleFarmer && sell.FarmerID == actor.UserID
		if !owner && !actor.IsStaff() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the listing farmer or staff can cancel a listing")
		}
		if err := purchases.CancelPair(ctx, repo, sell, purchase); err != nil {
			return err
		}
		return purchases.EmitCancelled(ctx, s.outbox, tx, actor, sell, now)
	})
	if err != nil {
		return nil, err
	}
	s.info(ctx, "listing cancelled", map[string]any{"sell_id": sell.ID.String()})
	return ListingFromModel(sell, now), nil
}

func (s *service) UpdateDeliveryInfo(ctx context.Context, actor auth.Actor, id uuid.UUID, req DeliveryInfoRequest) (*ListingDTO, error) {
	var sell *models.Sell
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.purchases.WithTx(tx)
		var (
			purchase *models.Purchase
			err      error
		)
		sell, purchase, err = lockListing(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := canManageDelivery(actor, sell, false); err != nil {
			return err
		}
		if sell.SellStatus.IsTerminal() {
			return pkgerrors.StateConflict("sell_status", "delivery details are locked once a listing is "+sell.SellStatus.String())
		}
		if req.DeliveryAddress != nil {
			address := strings.TrimSpace(*req.DeliveryAddress)
			if address == "" && sell.BuyerID != nil {
				return pkgerrors.Validation("delivery_address", "delivery address cannot be blank once claimed")
			}
			sell.DeliveryAddress = address
		}
		if req.DeliveryNotes != nil {
			sell.DeliveryNotes = strings.TrimSpace(*req.DeliveryNotes)
		}
		if err := purchases.WriteSell(ctx, repo, sell); err != nil {
			return err
		}
		if purchase == nil {
			return nil
		}
		purchase.DeliveryAddress = sell.DeliveryAddress
		purchase.DeliveryNotes = sell.DeliveryNotes
		if err := repo.SavePurchase(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ListingFromModel(sell, s.now()), nil
}

func (s *service) DeliverySchedule(ctx context.Context, actor auth.Actor) (*DeliveriesDTO, error) {
	rows, err := s.deliveries(ctx, actor)
	if err != nil {
		return nil, err
	}
	items := listingsFromModels(rows, s.now())
	return &DeliveriesDTO{Count: len(items), Listings: items}, nil
}

func (s *service) OverdueDeliveries(ctx context.Context, actor auth.Actor) (*DeliveriesDTO, error) {
	rows, err := s.deliveries(ctx, actor)
	if err != nil {
		return nil, err
	}
	now := s.now()
	items := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		if IsDeliveryOverdue(&rows[i], now) {
			items = append(items, *ListingFromModel(&rows[i], now))
		}
	}
	return &DeliveriesDTO{Count: len(items), Listings: items}, nil
}

func (s *service) deliveries(ctx context.Context, actor auth.Actor) ([]models.Sell, error) {
	filter := ListFilter{Statuses: deliveryStatuses}
	id := actor.UserID
	switch {
	case actor.IsStaff():
	case actor.Role == enums.RoleFarmer:
		filter.FarmerID = &id
	case actor.Role == enums.RoleBuyer:
		filter.BuyerID = &id
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "permission denied")
	}
	rows, err := s.repo.Deliveries(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries")
	}
	return rows, nil
}

// settle folds a completed listing payment into the shared balance.
func (s *service) settle(ctx context.Context, tx *gorm.DB, repo purchases.Repository, actor auth.Actor, sell *models.Sell, purchase *models.Purchase, payment *models.SellPayment, now time.Time) error {
	result, err := purchases.SyncSell(ctx, repo, sell, purchase, now)
	if err != nil {
		return err
	}
	return purchases.EmitPaymentRecorded(ctx, s.outbox, tx, actor, sell, purchase, purchases.RecordedPayment{
		ID:     payment.ID,
		Amount: payment.Amount,
		Method: payment.PaymentMethod,
	}, result, now)
}

func (s *service) page(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[ListingDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}
	page := pagination.Trim(rows, params.Limit, func(sell models.Sell) pagination.Cursor {
		return pagination.Cursor{CreatedAt: sell.CreatedAt, ID: sell.ID}
	})
	return &pagination.Page[ListingDTO]{
		Items:      listingsFromModels(page.Items, s.now()),
		NextCursor: page.NextCursor,
	}, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Sell, error) {
	sell, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return sell, nil
}

func (s *service) validateTerms(qty, price decimal.Decimal, deliveryDays int) error {
	if !qty.IsPositive() {
		return pkgerrors.Validation("quantity_sold", "quantity must be greater than zero")
	}
	if !price.IsPositive() {
		return pkgerrors.Validation("unit_price", "unit price must be greater than zero")
	}
	if deliveryDays < 1 || deliveryDays > s.marketplace.MaxDeliveryDays {
		return pkgerrors.Validation("delivery_days", fmt.Sprintf("delivery days must be between 1 and %d", s.marketplace.MaxDeliveryDays))
	}
	return nil
}

// checkStock requires the stock to belong to farmerID and hold at least qty.
func (s *service) checkStock(ctx context.Context, repo inventory.Repository, farmerID, stockID uuid.UUID, qty decimal.Decimal) error {
	stock, err := repo.FindStock(ctx, stockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Validation("harvest_stock_id", "harvest stock not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	harvest, err := repo.FindHarvest(ctx, stock.HarvestID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load harvest")
	}
	if harvest.FarmerID != farmerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you can only sell from your own harvest stock")
	}
	if qty.GreaterThan(stock.CurrentQuantity) {
		return pkgerrors.Validation("quantity_sold", fmt.Sprintf("insufficient stock, only %s kg available", stock.CurrentQuantity.StringFixed(2)))
	}
	return nil
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

// canView lets farmers see their own listings, buyers see posted listings
// and their own claims, and staff see everything.
func canView(actor auth.Actor, sell *models.Sell) error {
	switch {
	case actor.IsStaff():
		return nil
	case actor.Role == enums.RoleFarmer && sell.FarmerID == actor.UserID:
		return nil
	case actor.Role == enums.RoleBuyer && sell.SellStatus == enums.SellStatusPosted:
		return nil
	case actor.Role == enums.RoleBuyer && sell.BuyerID != nil && *sell.BuyerID == actor.UserID:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
}

// canPay allows the listing's buyer, its farmer and staff.
func canPay(actor auth.Actor, sell *models.Sell) error {
	switch actor.Role {
	case enums.RoleBuyer:
		if sell.BuyerID == nil || *sell.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only pay for listings you purchased")
		}
		return nil
	case enums.RoleFarmer:
		if sell.FarmerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only record payments for your own listings")
		}
		return nil
	}
	if actor.IsStaff() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "permission denied")
}

// canManageDelivery allows the buyer, the farmer and admins. Officers are
// admitted when officers is set.
func canManageDelivery(actor auth.Actor, sell *models.Sell, officers bool) error {
	switch {
	case actor.Role == enums.RoleAdmin:
		return nil
	case officers && actor.Role == enums.RoleMinagriOfficer:
		return nil
	case actor.Role == enums.RoleFarmer && sell.FarmerID == actor.UserID:
		return nil
	case actor.Role == enums.RoleBuyer && sell.BuyerID != nil && *sell.BuyerID == actor.UserID:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "permission denied")
}

// lockListing locks the listing and then its purchase, if any.
func lockListing(ctx context.Context, repo purchases.Repository, id uuid.UUID) (*models.Sell, *models.Purchase, error) {
	sell, err := loadSell(ctx, repo, id)
	if err != nil {
		return nil, nil, err
	}
	purchase, err := repo.FindPurchaseBySell(ctx, sell.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sell, nil, nil
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase")
	}
	return sell, purchase, nil
}

func loadSell(ctx context.Context, repo purchases.Repository, id uuid.UUID) (*models.Sell, error) {
	sell, err := repo.FindSellForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return sell, nil
}
