package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fmartins/orderhub/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_CheckAvailability(t *testing.T) {
	t.Run("returns the availability result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/inventory/check-availability" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var req map[string]any
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
			if req["product_id"].(float64) != 10 || req["quantity"].(float64) != 2 {
				t.Errorf("unexpected request: %v", req)
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"available": true, "product_id": 10, "product_name": "Widget",
				"product_sku": "W-010", "current_price": "9.99",
				"available_quantity": 50, "message": "in stock"
			}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())
		result, err := client.CheckAvailability(context.Background(), 10, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !result.Available || result.ProductID != 10 || result.ProductName != "Widget" {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.CurrentPrice.String() != "9.99" {
			t.Errorf("expected price 9.99, got %s", result.CurrentPrice)
		}
	})

	t.Run("available=false is an answer, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"available": false, "product_id": 10, "available_quantity": 1, "message": "insufficient stock"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())
		result, err := client.CheckAvailability(context.Background(), 10, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Available {
			t.Error("expected available=false")
		}
		if result.AvailableQuantity != 1 {
			t.Errorf("expected available quantity 1, got %d", result.AvailableQuantity)
		}
	})

	t.Run("unreachable service returns InventoryUnavailable", func(t *testing.T) {
		client := NewClient("http://localhost:1", &http.Client{Timeout: time.Second}, testLogger())

		_, err := client.CheckAvailability(context.Background(), 10, 2)

		var unavailable *domain.InventoryUnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("expected InventoryUnavailableError, got %v", err)
		}
	})

	t.Run("timeout returns InventoryUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewClient(server.URL, &http.Client{Timeout: 20 * time.Millisecond}, testLogger())

		_, err := client.CheckAvailability(context.Background(), 10, 2)

		var unavailable *domain.InventoryUnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("expected InventoryUnavailableError, got %v", err)
		}
	})

	t.Run("server error returns InventoryUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		_, err := client.CheckAvailability(context.Background(), 10, 2)

		var unavailable *domain.InventoryUnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("expected InventoryUnavailableError, got %v", err)
		}
	})
}
