package enums

import "slices"

// PurchaseStatus tracks the buyer-side view of a claimed listing.
type PurchaseStatus string

const (
	PurchaseStatusPendingPayment PurchaseStatus = "pending_payment"
	PurchaseStatusPartiallyPaid  PurchaseStatus = "partially_paid"
	PurchaseStatusFullyPaid      PurchaseStatus = "fully_paid"
	PurchaseStatusDelivered      PurchaseStatus = "delivered"
	PurchaseStatusCancelled      PurchaseStatus = "cancelled"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseStatusPendingPayment,
	PurchaseStatusPartiallyPaid,
	PurchaseStatusFullyPaid,
	PurchaseStatusDelivered,
	PurchaseStatusCancelled,
}

// String implements fmt.Stringer.
func (p PurchaseStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseStatus.
func (p PurchaseStatus) IsValid() bool {
	return slices.Contains(validPurchaseStatuses, p)
}

// AcceptsPayments reports whether new payments may be recorded in this state.
func (p PurchaseStatus) AcceptsPayments() bool {
	return p == PurchaseStatusPendingPayment || p == PurchaseStatusPartiallyPaid
}

// ParsePurchaseStatus converts raw input into a PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	return parseEnum(value, validPurchaseStatuses, "purchase status")
}
