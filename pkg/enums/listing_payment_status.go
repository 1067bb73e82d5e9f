package enums

import "slices"

// ListingPaymentStatus is derived from amount_paid against total_amount.
type ListingPaymentStatus string

const (
	ListingPaymentUnpaid  ListingPaymentStatus = "unpaid"
	ListingPaymentPartial ListingPaymentStatus = "partial"
	ListingPaymentPaid    ListingPaymentStatus = "paid"
)

var validListingPaymentStatuses = []ListingPaymentStatus{
	ListingPaymentUnpaid,
	ListingPaymentPartial,
	ListingPaymentPaid,
}

// String implements fmt.Stringer.
func (p ListingPaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ListingPaymentStatus.
func (p ListingPaymentStatus) IsValid() bool {
	return slices.Contains(validListingPaymentStatuses, p)
}

// ParseListingPaymentStatus converts raw input into a ListingPaymentStatus.
func ParseListingPaymentStatus(value string) (ListingPaymentStatus, error) {
	return parseEnum(value, validListingPaymentStatuses, "listing payment status")
}
