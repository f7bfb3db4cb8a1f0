package domain

import "github.com/shopspring/decimal"

// AvailabilityResult is the inventory owner's answer to a per-item
// availability check. It is transient: consumed immediately by the order
// builder, never persisted. Name, SKU and price become the line item's
// snapshot fields.
type AvailabilityResult struct {
	Available         bool            `json:"available"`
	ProductID         int64           `json:"product_id"`
	ProductName       string          `json:"product_name"`
	ProductSKU        string          `json:"product_sku"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	AvailableQuantity int             `json:"available_quantity"`
	Message           string          `json:"message"`
}
