package enums

import "fmt"

// OrderStatus tracks an order through payment, delivery, and settlement.
type OrderStatus string

const (
	OrderStatusPending             OrderStatus = "pending"
	OrderStatusPaid                OrderStatus = "paid"
	OrderStatusOutForDelivery      OrderStatus = "out_for_delivery"
	OrderStatusPendingConfirmation OrderStatus = "pending_confirmation"
	OrderStatusCompleted           OrderStatus = "completed"
	OrderStatusRefunded            OrderStatus = "refunded"
	OrderStatusCancelled           OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusOutForDelivery,
	OrderStatusPendingConfirmation,
	OrderStatusCompleted,
	OrderStatusRefunded,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further delivery transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusRefunded, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// DisplayName returns the human-facing label the storefront renders.
func (s OrderStatus) DisplayName() string {
	switch s {
	case OrderStatusPending:
		return "Pending"
	case OrderStatusPaid:
		return "Paid"
	case OrderStatusOutForDelivery:
		return "Out for delivery"
	case OrderStatusPendingConfirmation:
		return "Pending confirmation"
	case OrderStatusCompleted:
		return "Completed"
	case OrderStatusRefunded:
		return "Refunded"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}
