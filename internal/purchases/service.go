package purchases

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
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox/payloads"
)

// Service manages the buyer side of a claimed listing.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreatePurchaseRequest) (*PurchaseDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*PurchaseDTO, error)
	MakePayment(ctx context.Context, actor auth.Actor, purchaseID uuid.UUID, req MakePaymentRequest) (*PaymentResult, error)
	ConfirmPayment(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*PaymentDTO, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, purchaseID uuid.UUID, req UpdateStatusRequest) (*PurchaseDTO, error)
	Delete(ctx context.Context, actor auth.Actor, purchaseID uuid.UUID) error
	Payments(ctx context.Context, actor auth.Actor, purchaseID uuid.UUID) (*PaymentsDTO, error)
	ListForBuyer(ctx context.Context, actor auth.Actor) ([]PurchaseDTO, error)
	ListForFarmer(ctx context.Context, actor auth.Actor) ([]PurchaseDTO, error)
	ListAll(ctx context.Context, actor auth.Actor) ([]PurchaseDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the purchase service dependencies. Charger may be nil
// when no gateway is configured; gateway methods are then refused.
type ServiceParams struct {
	Repo      Repository
	Inventory inventory.Repository
	TX        txRunner
	Outbox    outbox.Emitter
	Charger   payments.Charger
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	inventory inventory.Repository
	tx        txRunner
	outbox    outbox.Emitter
	charger   payments.Charger
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the purchase service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
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
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		inventory: params.Inventory,
		tx:        params.TX,
		outbox:    params.Outbox,
		charger:   params.Charger,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreatePurchaseRequest) (*PurchaseDTO, error) {
	if actor.Role != enums.RoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can make purchases")
	}
	if req.SellID == uuid.Nil {
		return nil, pkgerrors.Validation("sell_id", "sell_id is required")
	}

	now := s.now()
	var purchase *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sell, err := loadSell(ctx, repo, req.SellID)
		if err != nil {
			return err
		}
		purchase, err = OpenPurchase(ctx, repo, sell, actor.UserID,
			strings.TrimSpace(req.DeliveryAddress), strings.TrimSpace(req.DeliveryNotes), strings.TrimSpace(req.Notes), now)
		if err != nil {
			return err
		}
		return EmitClaimed(ctx, s.outbox, tx, actor, sell, purchase, now)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "purchase created", map[string]any{
		"purchase_id": purchase.ID.String(),
		"sell_id":     purchase.SellID.String(),
		"buyer_id":    actor.UserID.String(),
	})
	return PurchaseFromModel(purchase), nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*PurchaseDTO, error) {
	purchase, err := loadPurchase(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, purchase); err != nil {
		return nil, err
	}
	return PurchaseFromModel(purchase), nil
}

// MakePayment records a payment toward a purchase. Offline methods complete
// at once. Gateway methods are stored pending, charged outside the
// transaction, then settled; a rejected charge is persisted as failed before
// the error is returned.
func (s *service) MakePayment(ctx context.Context, actor auth.Actor, purchaseID uuid.UUID, req MakePaymentRequest) (*PaymentResult, error) {
	if !req.PaymentMethod.IsPurchaseMethod() {
		return nil, pkgerrors.Validation("payment_method", "invalid payment method for a purchase")
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	gateway := req.PaymentMethod.UsesGateway()
	if gateway {
		if phone == "" {
			return nil, pkgerrors.Validation("phone_number", "phone number is required for mobile money payments")
		}
		if s.charger == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "mobile money payments are not available")
		}
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.Validation("amount", "amount must be greater than zero")
	}
	if gateway {
		if err := payments.ValidateChargeAmount(req.Amount); err != nil {
			return nil, err
		}
	}

	payment := &models.PurchasePayment{
		PurchaseID:    purchaseID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PhoneNumber:   phone,
		Status:        enums.PaymentStatusPending,
		Notes:         strings.TrimSpace(req.Notes),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sell, purchase, err := lockPair(ctx, repo, purchaseID)
		if err != nil {
			return err
		}
		if purchase.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only pay for your own purchases")
		}
		if !CanMakePayment(purchase) {
			return pkgerrors.StateConflict("purchase_status", "purchase cannot accept more payments")
		}
		completed, err := CompletedBalance(ctx, repo, sell.ID, purchase)
		if err != nil {
			return err
		}
		if err := payments.ValidateAmount(req.Amount, sell.QuantitySold.Mul(sell.UnitPrice), completed); err != nil {
			return err
		}

		if gateway {
			if err := repo.CreatePayment(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
			}
			return nil
		}
		now := s.now()
		payments.CompleteOffline(payment, now)
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		return s.settle(ctx, tx, repo, actor, sell, purchase, payment, now)
	})
	if err != nil {
		return nil, err
	}
	if gateway {
		if err := s.charge(ctx, actor, payment); err != nil {
			return nil, err
		}
	}

	purchase, err := loadPurchase(ctx, s.repo, purchaseID)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: PaymentFromModel(payment), Purchase: *PurchaseFromModel(purchase)}, nil
}

// charge calls the gateway and applies its verdict to the pending payment.
func (s *service) charge(ctx context.Context, actor auth.Actor, payment *models.PurchasePayment) error {
	outcome, chargeErr := s.charger.Charge(ctx, payment.Amount, payment.PhoneNumber)

	var processErr error
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sell, purchase, err := lockPair(ctx, repo, payment.PurchaseID)
		if err != nil {
			return err
		}
		now := s.now()
		processErr = payments.Process(payment, outcome, chargeErr, now)
		if err := repo.SavePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		switch payment.Status {
		case enums.PaymentStatusCompleted:
			return s.settle(ctx, tx, repo, actor, sell, purchase, payment, now)
		case enums.PaymentStatusFailed:
			return emit(ctx, s.outbox, tx, actor, enums.EventPaymentFailed, payment.ID, now, payloads.PaymentFailedEvent{
				PaymentID:  payment.ID,
				PurchaseID: purchase.ID,
				SellID:     sell.ID,
				Amount:     payment.Amount,
				Method:     payment.PaymentMethod,
				Reason:     payment.FailureReason,
				GatewayRef: payment.PayPackRef,
				FailedAt:   now.UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	if processErr != nil {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"payment_id":  payment.ID.String(),
				"purchase_id": payment.PurchaseID.String(),
				"reason":      payment.FailureReason,
			})
			s.logg.Warn(logCtx, "payment charge failed")
		}
		return processErr
	}
	s.info(ctx, "payment charged", map[string]any{
		"payment_id": payment.ID.String(),
		"status":     payment.Status,
	})
	return nil
}

// settle folds a completed payment into the shared balance and queues events.
func (s *service) settle(ctx context.Context, tx *gorm.DB, repo Repository, actor auth.Actor, sell *models.Sell, purchase *models.Purchase, payment *models.PurchasePayment, now time.Time) error {
	result, err := SyncSell(ctx, repo, sell, purchase, now)
	if err != nil {
		return err
	}
	return EmitPaymentRecorded(ctx, s.outbox, tx, actor, sell, purchase, RecordedPayment{
		ID:     payment.ID,
		Amount: payment.Amount,
		Method: payment.PaymentMethod,
	}, result, now)
}

func (s *service) ConfirmPayment(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*PaymentDTO, error) {
	var payment *models.PurchasePayment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		sell, purchase, err := lockPair(ctx, repo, found.PurchaseID)
		if err != nil {
			return err
		}
		if !actor.IsStaff() && purchase.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you do not have permission to confirm this payment")
		}
		if purchase.PurchaseStatus == enums.PurchaseStatusCancelled {
			return pkgerrors.StateConflict("purchase_status", "purchase is cancelled")
		}
		payment, err = repo.FindPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.StateConflict("status", "payment is not pending, current status: "+payment.Status.String())
		}
		now := s.now()
		payments.CompleteOffline(payment, now)
		if err := repo.SavePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		return s.settle(ctx, tx, repo, actor, sell, purchase, payment, now)
	})
	if err != nil {
		return nil, err
	}
	dto := PaymentFromModel(payment)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, purchaseID uuid.UUID, req UpdateStatusRequest) (*PurchaseDTO, error) {
	if req.Status != enums.PurchaseStatusDelivered && req.Status != enums.PurchaseStatusCancelled {
		return nil, pkgerrors.Validation("status", "status can only be set to delivered or cancelled; payment statuses follow payments")
	}

	var purchase *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sell, locked, err := lockPair(ctx, repo, purchaseID)
		if err != nil {
			return err
		}
		purchase = locked
		if err := canManage(actor, sell, purchase); err != nil {
			return err
		}
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			purchase.Notes = notes
		}

		now := s.now()
		if req.Status == enums.PurchaseStatusDelivered {
			if purchase.PurchaseStatus != enums.PurchaseStatusFullyPaid {
				return pkgerrors.StateConflict("status", "cannot change status from "+purchase.PurchaseStatus.String()+" to delivered")
			}
			if err := CompleteDelivery(ctx, repo, s.inventory.WithTx(tx), sell, purchase, actor.UserID, now); err != nil {
				return err
			}
			return EmitCompleted(ctx, s.outbox, tx, actor, sell, now)
		}

		if err := CancelPair(ctx, repo, sell, purchase); err != nil {
			return err
		}
		return EmitCancelled(ctx, s.outbox, tx, actor, sell, now)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "purchase status updated", map[string]any{
		"purchase_id": purchaseID.String(),
		"status":      purchase.PurchaseStatus,
	})
	return PurchaseFromModel(purchase), nil
}

// Delete drops an unpaid purchase and puts its listing back on the market.
func (s *service) Delete(ctx context.Context, actor auth.Actor, purchaseID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sell, purchase, err := lockPair(ctx, repo, purchaseID)
		if err != nil {
			return err
		}
		if !actor.IsStaff() && purchase.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only delete your own purchases")
		}
		switch purchase.PurchaseStatus {
		case enums.PurchaseStatusFullyPaid, enums.PurchaseStatusDelivered:
			return pkgerrors.StateConflict("purchase_status", "cannot delete fully paid or delivered purchases")
		case enums.PurchaseStatusCancelled:
			return pkgerrors.StateConflict("purchase_status", "cancelled purchases are kept on record")
		}
		open, err := repo.CountOpenPayments(ctx, purchase.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count payments")
		}
		if purchase.AmountPaid.IsPositive() || sell.AmountPaid.IsPositive() || open > 0 {
			return pkgerrors.StateConflict("amount_paid", "cannot delete purchases with payments made")
		}

		sell.SellStatus = enums.SellStatusPosted
		sell.BuyerID = nil
		sell.AmountPaid = decimal.Zero
		sell.PaymentStatus = enums.ListingPaymentUnpaid
		sell.DeliveryAddress = ""
		sell.DeliveryNotes = ""
		sell.PurchasedDate = nil
		sell.PaymentCompletedDate = nil
		sell.DeliveryDate = nil
		if err := WriteSell(ctx, repo, sell); err != nil {
			return err
		}
		if err := repo.DeletePurchase(ctx, purchase.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete purchase")
		}
		now := s.now()
		return emit(ctx, s.outbox, tx, actor, enums.EventListingReleased, purchase.ID, now, payloads.ListingReleasedEvent{
			SellID:     sell.ID,
			PurchaseID: purchase.ID,
			BuyerID:    purchase.BuyerID,
			ReleasedAt: now.UTC(),
		})
	})
}

func (s *service) Payments(ctx context.Context, actor auth.Actor, purchaseID uuid.UUID) (*PaymentsDTO, error) {
	purchase, err := loadPurchase(ctx, s.repo, purchaseID)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, purchase); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPayments(ctx, purchase.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	out := make([]PaymentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, PaymentFromModel(&rows[i]))
	}
	return &PaymentsDTO{
		Count:    len(out),
		Payments: out,
		Summary: PaymentSummary{
			TotalAmount:      purchase.TotalAmount,
			AmountPaid:       purchase.AmountPaid,
			RemainingBalance: RemainingBalance(purchase),
			PaymentProgress:  PaymentProgress(purchase),
		},
	}, nil
}

func (s *service) ListForBuyer(ctx context.Context, actor auth.Actor) ([]PurchaseDTO, error) {
	if actor.Role != enums.RoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers have purchases")
	}
	id := actor.UserID
	return s.list(ctx, ListFilter{BuyerID: &id})
}

func (s *service) ListForFarmer(ctx context.Context, actor auth.Actor) ([]PurchaseDTO, error) {
	if actor.Role != enums.RoleFarmer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can view purchases of their listings")
	}
	id := actor.UserID
	return s.list(ctx, ListFilter{FarmerID: &id})
}

func (s *service) ListAll(ctx context.Context, actor auth.Actor) ([]PurchaseDTO, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and officers can view all purchases")
	}
	return s.list(ctx, ListFilter{})
}

func (s *service) list(ctx context.Context, filter ListFilter) ([]PurchaseDTO, error) {
	rows, err := s.repo.ListPurchases(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	out := make([]PurchaseDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *PurchaseFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) canView(ctx context.Context, actor auth.Actor, purchase *models.Purchase) error {
	if actor.IsStaff() || purchase.BuyerID == actor.UserID {
		return nil
	}
	sell, err := s.repo.FindSell(ctx, purchase.SellID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if sell.FarmerID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "you do not have permission to view this purchase")
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

// canManage allows staff, the listing farmer and the buyer.
func canManage(actor auth.Actor, sell *models.Sell, purchase *models.Purchase) error {
	switch {
	case actor.IsStaff():
		return nil
	case actor.Role == enums.RoleFarmer && sell.FarmerID == actor.UserID:
		return nil
	case actor.Role == enums.RoleBuyer && purchase.BuyerID == actor.UserID:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "you do not have permission to update this purchase")
}

// lockPair locks the listing before its purchase. Every writer takes the
// locks in this order.
func lockPair(ctx context.Context, repo Repository, purchaseID uuid.UUID) (*models.Sell, *models.Purchase, error) {
	peek, err := loadPurchase(ctx, repo, purchaseID)
	if err != nil {
		return nil, nil, err
	}
	sell, err := loadSell(ctx, repo, peek.SellID)
	if err != nil {
		return nil, nil, err
	}
	purchase, err := repo.FindPurchaseForUpdate(ctx, purchaseID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase")
	}
	return sell, purchase, nil
}

func loadPurchase(ctx context.Context, repo Repository, id uuid.UUID) (*models.Purchase, error) {
	purchase, err := repo.FindPurchase(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	return purchase, nil
}

// loadSell reads the listing row for update.
func loadSell(ctx context.Context, repo Repository, id uuid.UUID) (*models.Sell, error) {
	sell, err := repo.FindSellForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return sell, nil
}
