package enums

import "slices"

// MovementType classifies an inventory movement.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementTransfer   MovementType = "transfer"
	MovementAdjustment MovementType = "adjustment"
)

var validMovementTypes = []MovementType{
	MovementIn,
	MovementOut,
	MovementTransfer,
	MovementAdjustment,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	return slices.Contains(validMovementTypes, m)
}

// Decrements reports whether the movement takes quantity out of the source.
func (m MovementType) Decrements() bool {
	return m == MovementOut || m == MovementTransfer
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	return parseEnum(value, validMovementTypes, "movement type")
}
