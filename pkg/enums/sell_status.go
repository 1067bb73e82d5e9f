package enums

import "slices"

// SellStatus tracks where a listing sits in its lifecycle.
type SellStatus string

const (
	SellStatusPosted    SellStatus = "posted"
	SellStatusPurchased SellStatus = "purchased"
	SellStatusCompleted SellStatus = "completed"
	SellStatusCancelled SellStatus = "cancelled"
)

var validSellStatuses = []SellStatus{
	SellStatusPosted,
	SellStatusPurchased,
	SellStatusCompleted,
	SellStatusCancelled,
}

// String implements fmt.Stringer.
func (s SellStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellStatus.
func (s SellStatus) IsValid() bool {
	return slices.Contains(validSellStatuses, s)
}

// IsTerminal reports whether no further transition is allowed.
func (s SellStatus) IsTerminal() bool {
	return s == SellStatusCompleted || s == SellStatusCancelled
}

// ParseSellStatus converts raw input into a SellStatus.
func ParseSellStatus(value string) (SellStatus, error) {
	return parseEnum(value, validSellStatuses, "sell status")
}
