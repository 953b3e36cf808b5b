package enums

import "fmt"

// NotificationType classifies admin feed entries and bus messages.
type NotificationType string

const (
	NotificationTypeOrderPaid              NotificationType = "order_paid"
	NotificationTypeOutOfStock             NotificationType = "out_of_stock"
	NotificationTypeLowStock               NotificationType = "low_stock"
	NotificationTypePaymentFailed          NotificationType = "payment_failed"
	NotificationTypeReconciliationRequired NotificationType = "reconciliation_required"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPaid,
	NotificationTypeOutOfStock,
	NotificationTypeLowStock,
	NotificationTypePaymentFailed,
	NotificationTypeReconciliationRequired,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
