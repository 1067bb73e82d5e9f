package enums

import "slices"

// NotificationType groups in-app notices so clients can pick an icon.
type NotificationType string

const (
	NotificationListing  NotificationType = "listing"
	NotificationPayment  NotificationType = "payment"
	NotificationDelivery NotificationType = "delivery"
)

var validNotificationTypes = []NotificationType{
	NotificationListing,
	NotificationPayment,
	NotificationDelivery,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw input into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parseEnum(value, validNotificationTypes, "notification type")
}
