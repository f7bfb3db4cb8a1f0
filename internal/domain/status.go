package domain

// transitions lists the legal next statuses for each status. CANCELLED and
// FAILED are absorbing: once reached, nothing moves out of them.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:           {OrderStatusInventoryReserved, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusInventoryReserved: {OrderStatusPaymentPending, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusPaymentPending:    {OrderStatusConfirmed, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusConfirmed:         {OrderStatusShipped, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusShipped:           {OrderStatusDelivered, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusDelivered:         {},
	OrderStatusCancelled:         {},
	OrderStatusFailed:            {},
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusFailed
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanCancel is the guard for the cancellation flow. It is stricter than the
// raw transition table: once an order is CONFIRMED or later, undoing it is a
// refund/return concern, not a cancellation.
func CanCancel(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusInventoryReserved, OrderStatusPaymentPending:
		return true
	}
	return false
}

// TransitionTo is the only way order status may be mutated.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !CanTransition(o.Status, target) {
		return &InvalidTransitionError{Current: o.Status, Action: "transition to " + string(target)}
	}
	o.Status = target
	return nil
}
