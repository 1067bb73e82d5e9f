package purchases

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestDerivePurchaseStatus(t *testing.T) {
	assert.Equal(t, enums.PurchaseStatusPendingPayment, DerivePurchaseStatus(decimal.Zero, dec("1000")))
	assert.Equal(t, enums.PurchaseStatusPartiallyPaid, DerivePurchaseStatus(dec("0.01"), dec("1000")))
	assert.Equal(t, enums.PurchaseStatusFullyPaid, DerivePurchaseStatus(dec("1000"), dec("1000")))
}

func TestBalanceHelpers(t *testing.T) {
	p := &models.Purchase{
		TotalAmount:    dec("1000"),
		AmountPaid:     dec("400"),
		PurchaseStatus: enums.PurchaseStatusPartiallyPaid,
	}
	assert.True(t, RemainingBalance(p).Equal(dec("600")))
	assert.True(t, PaymentProgress(p).Equal(dec("40")))
	assert.True(t, CanMakePayment(p))

	p.AmountPaid = dec("1000")
	p.PurchaseStatus = enums.PurchaseStatusFullyPaid
	assert.False(t, CanMakePayment(p))

	p.PurchaseStatus = enums.PurchaseStatusPendingPayment
	p.AmountPaid = decimal.Zero
	p.TotalAmount = decimal.Zero
	assert.True(t, PaymentProgress(p).IsZero())
	assert.False(t, CanMakePayment(p))
}

func TestDeliveryDateDropsTimeOfDay(t *testing.T) {
	paid := time.Date(2026, 5, 30, 22, 15, 0, 0, time.UTC)
	got := DeliveryDate(paid, 7)
	assert.Equal(t, time.Date(2026, 6, 6, 0, 0, 0, 0, time.UTC), got)
}
