package payments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/paypack"
)

type stubCashin struct {
	result paypack.CashinResult
	err    error
	calls  int
}

func (s *stubCashin) Cashin(ctx context.Context, amount decimal.Decimal, phone string) (paypack.CashinResult, error) {
	s.calls++
	return s.result, s.err
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestPayPackChargerMapsStatuses(t *testing.T) {
	cases := map[string]OutcomeStatus{
		"pending":    OutcomePending,
		"successful": OutcomeSuccess,
		"failed":     OutcomeFailed,
		"weird":      OutcomeFailed,
	}
	for raw, want := range cases {
		client := &stubCashin{result: paypack.CashinResult{Ref: "ref-1", Status: raw}}
		charger, err := NewPayPackCharger(client)
		require.NoError(t, err)

		outcome, err := charger.Charge(context.Background(), dec("100"), "0788000000")
		require.NoError(t, err)
		assert.Equal(t, want, outcome.Status, raw)
		assert.Equal(t, "ref-1", outcome.Ref)
		assert.Equal(t, raw, outcome.RawStatus)
	}
}

func TestPayPackChargerTreatsAcceptedBlankStatusAsPending(t *testing.T) {
	client := &stubCashin{result: paypack.CashinResult{Ref: "pp-9", Status: ""}}
	charger, err := NewPayPackCharger(client)
	require.NoError(t, err)

	outcome, err := charger.Charge(context.Background(), dec("100"), "0788000000")
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, outcome.Status)
	assert.Equal(t, "pp-9", outcome.Ref)

	payment := &models.PurchasePayment{Status: enums.PaymentStatusPending}
	require.NoError(t, Process(payment, outcome, nil, time.Now()))
	assert.Equal(t, enums.PaymentStatusPending, payment.Status)
	assert.Empty(t, payment.FailureReason)
	assert.Nil(t, payment.PayPackStatus)

	client.result = paypack.CashinResult{}
	outcome, err = charger.Charge(context.Background(), dec("100"), "0788000000")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Status)
}

func TestValidateChargeAmount(t *testing.T) {
	require.NoError(t, ValidateChargeAmount(dec("600")))
	assert.True(t, pkgerrors.IsCode(ValidateChargeAmount(dec("100.75")), pkgerrors.CodeValidation))
	assert.True(t, pkgerrors.IsCode(ValidateChargeAmount(dec("0.5")), pkgerrors.CodeValidation))
}

func TestPayPackChargerPassesErrorsThrough(t *testing.T) {
	client := &stubCashin{err: pkgerrors.New(pkgerrors.CodeDependency, "down")}
	charger, err := NewPayPackCharger(client)
	require.NoError(t, err)

	_, err = charger.Charge(context.Background(), dec("100"), "0788000000")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 1, client.calls)
}

func TestProcessOutcomes(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	t.Run("success completes", func(t *testing.T) {
		payment := &models.PurchasePayment{Status: enums.PaymentStatusPending}
		err := Process(payment, Outcome{Ref: "r1", Status: OutcomeSuccess, RawStatus: "successful"}, nil, now)
		require.NoError(t, err)
		assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)
		require.NotNil(t, payment.CompletedDate)
		assert.True(t, payment.CompletedDate.Equal(now))
		assert.Equal(t, "r1", payment.ReferenceNumber)
		require.NotNil(t, payment.PayPackStatus)
		assert.Equal(t, "successful", *payment.PayPackStatus)
	})

	t.Run("pending stays pending", func(t *testing.T) {
		payment := &models.PurchasePayment{Status: enums.PaymentStatusPending}
		err := Process(payment, Outcome{Ref: "r2", Status: OutcomePending, RawStatus: "pending"}, nil, now)
		require.NoError(t, err)
		assert.Equal(t, enums.PaymentStatusPending, payment.Status)
		assert.Nil(t, payment.CompletedDate)
		require.NotNil(t, payment.PayPackRef)
		assert.Equal(t, "r2", *payment.PayPackRef)
	})

	t.Run("failed outcome is a gateway error", func(t *testing.T) {
		payment := &models.PurchasePayment{Status: enums.PaymentStatusPending}
		err := Process(payment, Outcome{Ref: "r3", Status: OutcomeFailed, RawStatus: "rejected"}, nil, now)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
		assert.Equal(t, enums.PaymentStatusFailed, payment.Status)
		assert.Contains(t, payment.FailureReason, "rejected")
	})

	t.Run("transport error is a dependency error", func(t *testing.T) {
		payment := &models.PurchasePayment{Status: enums.PaymentStatusPending}
		err := Process(payment, Outcome{}, errors.New("dial tcp: timeout"), now)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
		assert.Equal(t, enums.PaymentStatusFailed, payment.Status)
		assert.Contains(t, payment.FailureReason, "timeout")
	})

	t.Run("validation error keeps validation code", func(t *testing.T) {
		payment := &models.PurchasePayment{Status: enums.PaymentStatusPending}
		err := Process(payment, Outcome{}, pkgerrors.Validation("amount", "amount must be at least 1"), now)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		assert.False(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
		assert.Equal(t, enums.PaymentStatusFailed, payment.Status)
	})

	t.Run("long failure reason is clipped on a rune boundary", func(t *testing.T) {
		payment := &models.PurchasePayment{Status: enums.PaymentStatusPending}
		// the prefix is 23 bytes, so a two-byte rune straddles the limit
		reason := strings.Repeat("é", 300)
		err := Process(payment, Outcome{}, errors.New(reason), now)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
		assert.True(t, utf8.ValidString(payment.FailureReason))
		assert.LessOrEqual(t, len(payment.FailureReason), failureReasonLimit)
		assert.Equal(t, failureReasonLimit-1, len(payment.FailureReason))
	})

	t.Run("gateway rejection error keeps gateway code", func(t *testing.T) {
		payment := &models.PurchasePayment{Status: enums.PaymentStatusPending}
		err := Process(payment, Outcome{}, pkgerrors.New(pkgerrors.CodeGateway, "bad number"), now)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
		assert.Equal(t, enums.PaymentStatusFailed, payment.Status)
	})
}

func TestValidateAmount(t *testing.T) {
	require.NoError(t, ValidateAmount(dec("600"), dec("1000"), dec("400")))

	err := ValidateAmount(dec("0"), dec("1000"), dec("0"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, pkgerrors.As(err).Details(), "amount")

	err = ValidateAmount(dec("600.01"), dec("1000"), dec("400"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(pkgerrors.FieldErrors)
	require.True(t, ok)
	assert.Equal(t, "600.00", details["remaining"])
}

func TestSumsIgnoreNonCompleted(t *testing.T) {
	sells := []models.SellPayment{
		{Amount: dec("400"), Status: enums.PaymentStatusCompleted},
		{Amount: dec("100"), Status: enums.PaymentStatusFailed},
		{Amount: dec("600"), Status: enums.PaymentStatusCompleted},
	}
	assert.True(t, SumCompletedSellPayments(sells).Equal(dec("1000")))

	purchases := []models.PurchasePayment{
		{Amount: dec("50"), Status: enums.PaymentStatusPending},
		{Amount: dec("25.5"), Status: enums.PaymentStatusCompleted},
	}
	assert.True(t, SumCompletedPurchasePayments(purchases).Equal(dec("25.5")))
	assert.True(t, Remaining(dec("10"), dec("12")).IsZero())
}

func TestDeriveListingPaymentStatus(t *testing.T) {
	assert.Equal(t, enums.ListingPaymentUnpaid, DeriveListingPaymentStatus(decimal.Zero, dec("1000")))
	assert.Equal(t, enums.ListingPaymentPartial, DeriveListingPaymentStatus(dec("400"), dec("1000")))
	assert.Equal(t, enums.ListingPaymentPaid, DeriveListingPaymentStatus(dec("1000"), dec("1000")))
}
