package enums

import "slices"

// StorageOrderStatus is the review state of a warehouse storage order.
type StorageOrderStatus string

const (
	StorageOrderPending   StorageOrderStatus = "pending"
	StorageOrderConfirmed StorageOrderStatus = "confirmed"
	StorageOrderRejected  StorageOrderStatus = "rejected"
)

var validStorageOrderStatuses = []StorageOrderStatus{
	StorageOrderPending,
	StorageOrderConfirmed,
	StorageOrderRejected,
}

// String implements fmt.Stringer.
func (s StorageOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StorageOrderStatus.
func (s StorageOrderStatus) IsValid() bool {
	return slices.Contains(validStorageOrderStatuses, s)
}

// ParseStorageOrderStatus converts raw input into a StorageOrderStatus.
func ParseStorageOrderStatus(value string) (StorageOrderStatus, error) {
	return parseEnum(value, validStorageOrderStatuses, "storage order status")
}

// StorageAvailability tracks whether the goods of an order are in the warehouse.
type StorageAvailability string

const (
	StorageWaiting  StorageAvailability = "waiting"
	StorageImported StorageAvailability = "imported"
	StorageExported StorageAvailability = "exported"
)

var validStorageAvailabilities = []StorageAvailability{
	StorageWaiting,
	StorageImported,
	StorageExported,
}

// String implements fmt.Stringer.
func (s StorageAvailability) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StorageAvailability.
func (s StorageAvailability) IsValid() bool {
	return slices.Contains(validStorageAvailabilities, s)
}
