package purchases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/inventory"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/payments"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/outbox"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/paypack"
)

var testNow = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

type recordingEmitter struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) count(eventType enums.OutboxEventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

type stubCharger struct {
	outcome payments.Outcome
	err     error
	calls   int
}

func (s *stubCharger) Charge(context.Context, decimal.Decimal, string) (payments.Outcome, error) {
	s.calls++
	return s.outcome, s.err
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	repo    Repository
	emitter *recordingEmitter
	charger *stubCharger
	farmer  auth.Actor
	buyer   auth.Actor
	stock   *models.HarvestStock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	f := &fixture{
		conn:    conn,
		repo:    NewRepository(conn),
		emitter: &recordingEmitter{},
		charger: &stubCharger{outcome: payments.Outcome{Ref: "pp-1", Status: payments.OutcomeSuccess, RawStatus: "successful"}},
		farmer:  auth.Actor{UserID: uuid.New(), Role: enums.RoleFarmer},
		buyer:   auth.Actor{UserID: uuid.New(), Role: enums.RoleBuyer},
	}
	svc, err := NewService(ServiceParams{
		Repo:      f.repo,
		Inventory: inventory.NewRepository(conn),
		TX:        db.NewFromConn(conn),
		Outbox:    f.emitter,
		Charger:   f.charger,
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	f.svc = svc

	harvest := &models.SunflowerHarvest{
		FarmerID:     f.farmer.UserID,
		HarvestDate:  testNow.AddDate(0, 0, -10),
		Quantity:     dec("500"),
		QualityGrade: enums.QualityGradeA,
		District:     "Nyagatare",
		Sector:       "Karangazi",
		Cell:         "Rwenje",
		Village:      "Kabare",
	}
	require.NoError(t, conn.Create(harvest).Error)
	f.stock = &models.HarvestStock{HarvestID: harvest.ID, CurrentQuantity: dec("500")}
	require.NoError(t, conn.Create(f.stock).Error)
	return f
}

// postListing inserts a posted 100kg listing at 10 per kg.
func (f *fixture) postListing(t *testing.T) *models.Sell {
	t.Helper()
	sell := &models.Sell{
		FarmerID:       f.farmer.UserID,
		HarvestStockID: f.stock.ID,
		QuantitySold:   dec("100"),
		UnitPrice:      dec("10"),
		TotalAmount:    dec("1000"),
		DeliveryDays:   7,
		SellStatus:     enums.SellStatusPosted,
		PaymentStatus:  enums.ListingPaymentUnpaid,
		AmountPaid:     decimal.Zero,
	}
	require.NoError(t, f.conn.Create(sell).Error)
	return sell
}

func (f *fixture) claim(t *testing.T, sell *models.Sell) *PurchaseDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), f.buyer, CreatePurchaseRequest{SellID: sell.ID, DeliveryAddress: "Kigali, Gasabo"})
	require.NoError(t, err)
	return dto
}

func (f *fixture) reloadSell(t *testing.T, id uuid.UUID) *models.Sell {
	t.Helper()
	sell, err := f.repo.FindSell(context.Background(), id)
	require.NoError(t, err)
	return sell
}

func TestCreateClaimsListing(t *testing.T) {
	f := newFixture(t)
	sell := f.postListing(t)

	dto := f.claim(t, sell)
	assert.Equal(t, enums.PurchaseStatusPendingPayment, dto.PurchaseStatus)
	assert.True(t, dto.QuantityPurchased.Equal(dec("100")))
	assert.True(t, dto.TotalAmount.Equal(dec("1000")))
	assert.True(t, dto.CanMakePayment)

	stored := f.reloadSell(t, sell.ID)
	assert.Equal(t, enums.SellStatusPurchased, stored.SellStatus)
	require.NotNil(t, stored.BuyerID)
	assert.Equal(t, f.buyer.UserID, *stored.BuyerID)
	assert.Equal(t, "Kigali, Gasabo", stored.DeliveryAddress)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, 1, f.emitter.count(enums.EventListingClaimed))

	other := auth.Actor{UserID: uuid.New(), Role: enums.RoleBuyer}
	_, err := f.svc.Create(context.Background(), other, CreatePurchaseRequest{SellID: sell.ID, DeliveryAddress: "Huye"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.Create(context.Background(), f.farmer, CreatePurchaseRequest{SellID: sell.ID, DeliveryAddress: "Huye"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	fresh := f.postListing(t)
	_, err = f.svc.Create(context.Background(), other, CreatePurchaseRequest{SellID: fresh.ID, DeliveryAddress: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStaleClaimLoses(t *testing.T) {
	f := newFixture(t)
	sell := f.postListing(t)
	ctx := context.Background()

	stale, err := f.repo.FindSell(ctx, sell.ID)
	require.NoError(t, err)
	f.claim(t, sell)

	stale.SellStatus = enums.SellStatusPosted
	err = f.repo.ClaimSell(ctx, stale)
	assert.ErrorIs(t, err, ErrStaleSell)
}

func TestPaymentsReachPaidAndDeliveryRemovesStockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sell := f.postListing(t)
	purchase := f.claim(t, sell)

	first, err := f.svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec("400"), PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, first.Payment.Status)
	assert.Equal(t, enums.PurchaseStatusPartiallyPaid, first.Purchase.PurchaseStatus)
	assert.True(t, first.Purchase.RemainingBalance.Equal(dec("600")))
	assert.Equal(t, 0, f.charger.calls)

	partial := f.reloadSell(t, sell.ID)
	assert.Equal(t, enums.ListingPaymentPartial, partial.PaymentStatus)
	assert.True(t, partial.AmountPaid.Equal(dec("400")))
	assert.Nil(t, partial.DeliveryDate)

	_, err = f.svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec("600.01"), PaymentMethod: enums.PaymentMethodCash})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	second, err := f.svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec("600"), PaymentMethod: enums.PaymentMethodPayPack, PhoneNumber: "0788123456"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.charger.calls)
	assert.Equal(t, enums.PaymentStatusCompleted, second.Payment.Status)
	require.NotNil(t, second.Payment.PayPackRef)
	assert.Equal(t, "pp-1", *second.Payment.PayPackRef)
	assert.Equal(t, enums.PurchaseStatusFullyPaid, second.Purchase.PurchaseStatus)
	require.NotNil(t, second.Purchase.ExpectedDeliveryDate)
	assert.Equal(t, "2026-06-08", *second.Purchase.ExpectedDeliveryDate)

	paid := f.reloadSell(t, sell.ID)
	assert.Equal(t, enums.ListingPaymentPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaymentCompletedDate)
	assert.Equal(t, 2, f.emitter.count(enums.EventListingPaymentRecorded))
	assert.Equal(t, 1, f.emitter.count(enums.EventListingPaid))

	_, err = f.svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec("1"), PaymentMethod: enums.PaymentMethodCash})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	delivered, err := f.svc.UpdateStatus(ctx, f.farmer, purchase.ID, UpdateStatusRequest{Status: enums.PurchaseStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusDelivered, delivered.PurchaseStatus)
	require.NotNil(t, delivered.ActualDeliveryDate)
	assert.Equal(t, "2026-06-01", *delivered.ActualDeliveryDate)
	assert.Equal(t, enums.SellStatusCompleted, f.reloadSell(t, sell.ID).SellStatus)

	_, err = f.svc.UpdateStatus(ctx, f.farmer, purchase.ID, UpdateStatusRequest{Status: enums.PurchaseStatusDelivered})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var stock models.HarvestStock
	require.NoError(t, f.conn.First(&stock, "id = ?", f.stock.ID).Error)
	assert.True(t, stock.CurrentQuantity.Equal(dec("400")), stock.CurrentQuantity.String())

	var outs int64
	require.NoError(t, f.conn.Model(&models.HarvestMovement{}).Where("sell_id = ?", sell.ID).Count(&outs).Error)
	assert.Equal(t, int64(1), outs)
	assert.Equal(t, 1, f.emitter.count(enums.EventListingCompleted))
}

func TestGatewayFailurePersistsFailedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purchase := f.claim(t, f.postListing(t))

	f.charger.outcome = payments.Outcome{Ref: "pp-2", Status: payments.OutcomeFailed, RawStatus: "rejected"}
	_, err := f.svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec("100"), PaymentMethod: enums.PaymentMethodPayPack, PhoneNumber: "0788123456"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))

	f.charger.outcome = payments.Outcome{}
	f.charger.err = errors.New("dial tcp: i/o timeout")
	_, err = f.svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec("100"), PaymentMethod: enums.PaymentMethodPayPack, PhoneNumber: "0788123456"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	summary, err := f.svc.Payments(ctx, f.buyer, purchase.ID)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Count)
	for _, p := range summary.Payments {
		assert.Equal(t, enums.PaymentStatusFailed, p.Status)
		assert.NotEmpty(t, p.FailureReason)
	}
	assert.True(t, summary.Summary.AmountPaid.IsZero())
	assert.True(t, summary.Summary.RemainingBalance.Equal(dec("1000")))
	assert.Equal(t, 2, f.emitter.count(enums.EventPaymentFailed))

	_, err = f.svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec("100"), PaymentMethod: enums.PaymentMethodPayPack})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGatewayPaymentRejectsAmountsItCannotChargeExactly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sell := f.postListing(t)
	purchase := f.claim(t, sell)

	var gatewayCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gatewayCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/auth/agents/authorize"):
			_, _ = w.Write([]byte(`{"access":"tok","refresh":"ref","expires":3600}`))
		default:
			_, _ = w.Write([]byte(`{"ref":"pp-77","status":"successful","amount":600,"kind":"CASHIN"}`))
		}
	}))
	t.Cleanup(srv.Close)

	client, err := paypack.NewClient(config.PayPackConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		WebhookMode:  "development",
	})
	require.NoError(t, err)
	charger, err := payments.NewPayPackCharger(client)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:      f.repo,
		Inventory: inventory.NewRepository(f.conn),
		TX:        db.NewFromConn(f.conn),
		Outbox:    f.emitter,
		Charger:   charger,
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)

	for _, raw := range []string{"100.75", "0.5"} {
		_, err = svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec(raw), PaymentMethod: enums.PaymentMethodPayPack, PhoneNumber: "0788123456"})
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), raw)
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
	}
	assert.Zero(t, gatewayCalls.Load())

	var rows int64
	require.NoError(t, f.conn.Model(&models.PurchasePayment{}).Where("purchase_id = ?", purchase.ID).Count(&rows).Error)
	assert.Zero(t, rows)
	assert.True(t, f.reloadSell(t, sell.ID).AmountPaid.IsZero())
	assert.Zero(t, f.emitter.count(enums.EventPaymentFailed))

	result, err := svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec("600"), PaymentMethod: enums.PaymentMethodPayPack, PhoneNumber: "0788123456"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, result.Payment.Status)
	assert.True(t, f.reloadSell(t, sell.ID).AmountPaid.Equal(dec("600")))
	assert.Equal(t, int32(2), gatewayCalls.Load())
}

func TestPendingPaymentConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purchase := f.claim(t, f.postListing(t))

	f.charger.outcome = payments.Outcome{Ref: "pp-3", Status: payments.OutcomePending, RawStatus: "pending"}
	result, err := f.svc.MakePayment(ctx, f.buyer, purchase.ID, MakePaymentRequest{Amount: dec("250"), PaymentMethod: enums.PaymentMethodPayPack, PhoneNumber: "0788123456"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, result.Payment.Status)
	assert.True(t, result.Purchase.AmountPaid.IsZero())

	outsider := auth.Actor{UserID: uuid.New(), Role: enums.RoleBuyer}
	_, err = f.svc.ConfirmPayment(ctx, outsider, result.Payment.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	admin := auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	confirmed, err := f.svc.ConfirmPayment(ctx, admin, result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, confirmed.Status)

	_, err = f.svc.ConfirmPayment(ctx, admin, result.Payment.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	got, err := f.svc.Get(ctx, f.farmer, purchase.ID)
	require.NoError(t, err)
	assert.True(t, got.AmountPaid.Equal(dec("250")))
	assert.Equal(t, enums.PurchaseStatusPartiallyPaid, got.PurchaseStatus)
}

func TestDeleteReleasesListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sell := f.postListing(t)
	purchase := f.claim(t, sell)

	require.NoError(t, f.svc.Delete(ctx, f.buyer, purchase.ID))
	released := f.reloadSell(t, sell.ID)
	assert.Equal(t, enums.SellStatusPosted, released.SellStatus)
	assert.Nil(t, released.BuyerID)
	assert.Empty(t, released.DeliveryAddress)
	assert.Nil(t, released.PurchasedDate)
	assert.Equal(t, 1, f.emitter.count(enums.EventListingReleased))

	_, err := f.svc.Get(ctx, f.buyer, purchase.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	again := f.claim(t, released)
	_, err = f.svc.MakePayment(ctx, f.buyer, again.ID, MakePaymentRequest{Amount: dec("10"), PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)
	err = f.svc.Delete(ctx, f.buyer, again.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCancelRequiresNothingPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sell := f.postListing(t)
	purchase := f.claim(t, sell)

	_, err := f.svc.UpdateStatus(ctx, f.buyer, purchase.ID, UpdateStatusRequest{Status: enums.PurchaseStatusFullyPaid})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	cancelled, err := f.svc.UpdateStatus(ctx, f.buyer, purchase.ID, UpdateStatusRequest{Status: enums.PurchaseStatusCancelled, Notes: "changed plans"})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusCancelled, cancelled.PurchaseStatus)
	assert.Equal(t, "changed plans", cancelled.Notes)
	assert.Equal(t, enums.SellStatusCancelled, f.reloadSell(t, sell.ID).SellStatus)

	paidFor := f.claim(t, f.postListing(t))
	_, err = f.svc.MakePayment(ctx, f.buyer, paidFor.ID, MakePaymentRequest{Amount: dec("5"), PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.buyer, paidFor.ID, UpdateStatusRequest{Status: enums.PurchaseStatusCancelled})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestListsAreRoleScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.claim(t, f.postListing(t))
	f.claim(t, f.postListing(t))

	mine, err := f.svc.ListForBuyer(ctx, f.buyer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	farmerView, err := f.svc.ListForFarmer(ctx, f.farmer)
	require.NoError(t, err)
	assert.Len(t, farmerView, 2)

	otherFarmer := auth.Actor{UserID: uuid.New(), Role: enums.RoleFarmer}
	none, err := f.svc.ListForFarmer(ctx, otherFarmer)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.ListAll(ctx, f.buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	all, err := f.svc.ListAll(ctx, auth.Actor{UserID: uuid.New(), Role: enums.RoleMinagriOfficer})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.Get(ctx, otherFarmer, mine[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
