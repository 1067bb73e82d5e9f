package inventory

import "github.com/shopspring/decimal"

// CanAdd reports whether delta fits on top of current. A non-positive
// maxCapacity means the line is unbounded.
func CanAdd(current, maxCapacity, delta decimal.Decimal) bool {
	if !delta.IsPositive() {
		return false
	}
	if !maxCapacity.IsPositive() {
		return true
	}
	return current.Add(delta).LessThanOrEqual(maxCapacity)
}

// CanRemove reports whether delta can be taken out of current.
func CanRemove(current, delta decimal.Decimal) bool {
	return delta.IsPositive() && delta.LessThanOrEqual(current)
}
