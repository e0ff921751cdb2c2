package delivery

import "github.com/aridelgado/blindbox-backend/pkg/enums"

// transitions is the full order lifecycle. Refunded and Cancelled are
// alternate terminal states reached through the refund ledger; they are kept
// in the same table so every status write in the system goes through one
// legality check.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPaid: {
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusOutForDelivery: {
		enums.OrderStatusPendingConfirmation,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPendingConfirmation: {
		enums.OrderStatusCompleted,
		enums.OrderStatusRefunded,
	},
	enums.OrderStatusCompleted: {
		enums.OrderStatusRefunded,
	},
}

// CanTransition reports whether moving an order from one status to another
// is legal.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// nonAdminStatuses are the only targets a delivery agent may set directly.
var nonAdminStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusOutForDelivery:      true,
	enums.OrderStatusPendingConfirmation: true,
}
