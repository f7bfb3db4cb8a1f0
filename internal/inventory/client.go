// Package inventory is the adapter to the externally owned inventory
// capability. It holds no local state; every check is a network round trip.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fmartins/orderhub/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient expects an http.Client with a timeout configured; a hung
// availability check must surface as InventoryUnavailable, not block the
// placement flow forever.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type checkRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CheckAvailability asks the inventory owner whether the requested quantity
// of a product can be satisfied. The result is advisory: actual allocation
// happens later, when the owner processes the OrderCreated event, so two
// concurrent orders can both be told "available" for the same limited stock.
//
// A result with Available=false is a successful call. Any failure to
// complete the call returns InventoryUnavailableError.
func (c *Client) CheckAvailability(ctx context.Context, productID int64, quantity int) (*domain.AvailabilityResult, error) {
	body, err := json.Marshal(checkRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return nil, &domain.InventoryUnavailableError{Err: fmt.Errorf("marshal check request: %w", err)}
	}

	url := c.baseURL + "/inventory/check-availability"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.InventoryUnavailableError{Err: fmt.Errorf("create check request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("availability check failed", "error", err, "product_id", productID)
		return nil, &domain.InventoryUnavailableError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("availability check returned unexpected status",
			"status", resp.StatusCode, "product_id", productID)
		return nil, &domain.InventoryUnavailableError{
			Err: fmt.Errorf("inventory service returned status %d", resp.StatusCode),
		}
	}

	var result domain.AvailabilityResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &domain.InventoryUnavailableError{Err: fmt.Errorf("decode availability response: %w", err)}
	}

	c.logger.Info("availability checked",
		"product_id", productID, "quantity", quantity, "available", result.Available)

	return &result, nil
}
