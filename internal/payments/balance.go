package payments

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

// SumCompletedSellPayments adds up completed listing payments.
func SumCompletedSellPayments(rows []models.SellPayment) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row.Status == enums.PaymentStatusCompleted {
			total = total.Add(row.Amount)
		}
	}
	return total
}

// SumCompletedPurchasePayments adds up completed purchase payments.
func SumCompletedPurchasePayments(rows []models.PurchasePayment) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row.Status == enums.PaymentStatusCompleted {
			total = total.Add(row.Amount)
		}
	}
	return total
}

// Remaining returns total minus completed, never below zero.
func Remaining(total, completed decimal.Decimal) decimal.Decimal {
	remaining := total.Sub(completed)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ValidateAmount checks a new payment against the outstanding balance.
func ValidateAmount(amount, total, completed decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.Validation("amount", "amount must be greater than zero")
	}
	remaining := Remaining(total, completed)
	if amount.GreaterThan(remaining) {
		msg := fmt.Sprintf("payment amount cannot exceed remaining balance of %s", remaining.StringFixed(2))
		return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(pkgerrors.FieldErrors{
			"amount":    msg,
			"remaining": remaining.StringFixed(2),
		})
	}
	return nil
}

// DeriveListingPaymentStatus is a pure function of amount paid against total.
func DeriveListingPaymentStatus(amountPaid, total decimal.Decimal) enums.ListingPaymentStatus {
	switch {
	case !amountPaid.IsPositive():
		return enums.ListingPaymentUnpaid
	case amountPaid.GreaterThanOrEqual(total):
		return enums.ListingPaymentPaid
	default:
		return enums.ListingPaymentPartial
	}
}
