package domain

import "fmt"

// UserNotFoundError means the requesting user does not exist. Placement
// aborts before any side effect.
type UserNotFoundError struct {
	UserID int64
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user not found with id %d", e.UserID)
}

// OrderNotFoundError means no order exists with the given id.
type OrderNotFoundError struct {
	OrderID int64
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found with id %d", e.OrderID)
}

// InsufficientStockError is the inventory owner's business answer that the
// requested quantity cannot be satisfied. It is not a transport failure.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id %d): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

// InventoryUnavailableError means the availability check itself could not
// complete: network error, timeout or an unexpected response. Distinct from
// available=false, which is a legitimate answer.
type InventoryUnavailableError struct {
	Err error
}

func (e *InventoryUnavailableError) Error() string {
	return fmt.Sprintf("inventory service unavailable: %v", e.Err)
}

func (e *InventoryUnavailableError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError rejects an illegal status change, carrying the
// current status for diagnostics.
type InvalidTransitionError struct {
	Current OrderStatus
	Action  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s: order status is %s", e.Action, e.Current)
}
