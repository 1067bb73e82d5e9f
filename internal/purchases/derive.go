package purchases

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/payments"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// DerivePurchaseStatus maps the paid amount onto the payment-driven statuses.
// Delivered and cancelled are set explicitly and never derived.
func DerivePurchaseStatus(amountPaid, total decimal.Decimal) enums.PurchaseStatus {
	switch payments.DeriveListingPaymentStatus(amountPaid, total) {
	case enums.ListingPaymentPaid:
		return enums.PurchaseStatusFullyPaid
	case enums.ListingPaymentPartial:
		return enums.PurchaseStatusPartiallyPaid
	default:
		return enums.PurchaseStatusPendingPayment
	}
}

// RemainingBalance is what the buyer still owes.
func RemainingBalance(p *models.Purchase) decimal.Decimal {
	return payments.Remaining(p.TotalAmount, p.AmountPaid)
}

// PaymentProgress is the paid share of the total as a percentage.
func PaymentProgress(p *models.Purchase) decimal.Decimal {
	if !p.TotalAmount.IsPositive() {
		return decimal.Zero
	}
	return p.AmountPaid.Div(p.TotalAmount).Mul(hundred).Round(2)
}

// CanMakePayment reports whether the purchase still accepts payments.
func CanMakePayment(p *models.Purchase) bool {
	return p.PurchaseStatus.AcceptsPayments() && RemainingBalance(p).IsPositive()
}

// DeliveryDate is the calendar day that falls days after from.
func DeliveryDate(from time.Time, days int) time.Time {
	y, m, d := from.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}
