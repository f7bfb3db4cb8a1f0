package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fmartins/orderhub/internal/domain"
)

// ItemRequest is a requested line: product and quantity only. Name, SKU and
// price are not trusted from the request; they come from the availability
// check.
type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// BuildOrder constructs a PENDING order from the request items and their
// availability results, positionally matched 1:1. It does no I/O. A length
// mismatch is a programming error in the caller, not a domain failure.
func BuildOrder(userID int64, shippingAddress string, items []ItemRequest, results []*domain.AvailabilityResult) (*domain.Order, error) {
	if len(items) != len(results) {
		return nil, fmt.Errorf("order builder: %d item requests but %d availability results", len(items), len(results))
	}

	now := time.Now().UTC()
	total := decimal.Zero
	lineItems := make([]domain.OrderLineItem, 0, len(items))

	for i, req := range items {
		res := results[i]
		subtotal := res.CurrentPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))

		lineItems = append(lineItems, domain.OrderLineItem{
			ProductID:    res.ProductID,
			ProductName:  res.ProductName,
			ProductSKU:   res.ProductSKU,
			Quantity:     req.Quantity,
			PriceAtOrder: res.CurrentPrice,
			Subtotal:     subtotal,
		})

		total = total.Add(subtotal)
	}

	return &domain.Order{
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		Items:           lineItems,
		TotalAmount:     total,
		ShippingAddress: shippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
