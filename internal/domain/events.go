package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types emitted on the order.events topic.
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
)

// Event types consumed from the inventory.events topic.
const (
	EventTypeInventoryReserved = "INVENTORY_RESERVED"
	EventTypeReservationFailed = "RESERVATION_FAILED"
)

type OrderEventItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// OrderCreatedEvent tells the inventory owner to reserve stock for each line
// item. One message per order.
type OrderCreatedEvent struct {
	OrderID         int64            `json:"order_id"`
	UserID          int64            `json:"user_id"`
	Items           []OrderEventItem `json:"items"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	ShippingAddress string           `json:"shipping_address"`
	CreatedAt       time.Time        `json:"created_at"`
	EventType       string           `json:"event_type"`
}

// OrderCancelledEvent tells the inventory owner to release previously
// reserved stock.
type OrderCancelledEvent struct {
	OrderID   int64  `json:"order_id"`
	EventType string `json:"event_type"`
}

// InventoryEvent is the inventory owner's feedback on a reservation. It
// drives the lifecycle transitions out of PENDING.
type InventoryEvent struct {
	OrderID   int64  `json:"order_id"`
	EventType string `json:"event_type"`
}

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	items := make([]OrderEventItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderEventItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			Price:       item.PriceAtOrder,
		})
	}

	return OrderCreatedEvent{
		OrderID:         o.ID,
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		EventType:       EventTypeOrderCreated,
	}
}

func NewOrderCancelledEvent(orderID int64) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:   orderID,
		EventType: EventTypeOrderCancelled,
	}
}
