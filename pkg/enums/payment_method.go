package enums

import "slices"

// PaymentMethod describes how a payment event was settled.
type PaymentMethod string

const (
	PaymentMethodPayPack      PaymentMethod = "paypack"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodOther        PaymentMethod = "other"
)

// Listing payments are recorded after the fact; purchase payments may go
// through the gateway.
var (
	listingPaymentMethods = []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodBankTransfer,
		PaymentMethodMobileMoney,
		PaymentMethodCheck,
		PaymentMethodOther,
	}
	purchasePaymentMethods = []PaymentMethod{
		PaymentMethodPayPack,
		PaymentMethodBankTransfer,
		PaymentMethodCash,
		PaymentMethodOther,
	}
)

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// UsesGateway reports whether recording this method requires an outbound charge.
func (m PaymentMethod) UsesGateway() bool {
	return m == PaymentMethodPayPack
}

// IsListingMethod reports whether the method can be recorded against a listing.
func (m PaymentMethod) IsListingMethod() bool {
	return slices.Contains(listingPaymentMethods, m)
}

// IsPurchaseMethod reports whether the method can be used for a purchase payment.
func (m PaymentMethod) IsPurchaseMethod() bool {
	return slices.Contains(purchasePaymentMethods, m)
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parseEnum(value, slices.Concat(listingPaymentMethods, purchasePaymentMethods), "payment method")
}
