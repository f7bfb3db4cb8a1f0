//go:build integration

package test

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

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/fmartins/orderhub/internal/domain"
	"github.com/fmartins/orderhub/internal/inventory"
	"github.com/fmartins/orderhub/internal/messaging"
	"github.com/fmartins/orderhub/internal/orders"
	"github.com/fmartins/orderhub/internal/outbox"
	"github.com/fmartins/orderhub/internal/users"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubInventory answers every availability check with the configured result.
func stubInventory(t *testing.T, available bool, price string, quantity int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID int64 `json:"product_id"`
			Quantity  int   `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode availability request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(domain.AvailabilityResult{
			Available:         available,
			ProductID:         req.ProductID,
			ProductName:       "Integration Widget",
			ProductSKU:        "IW-001",
			CurrentPrice:      decimal.RequireFromString(price),
			AvailableQuantity: quantity,
		})
	}))
	t.Cleanup(server.Close)

	return server
}

// stubUsers knows every user id.
func stubUsers(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 1, "name": "Test User", "email": "test@example.com"}`))
	}))
	t.Cleanup(server.Close)

	return server
}

func newIntegrationService(t *testing.T, connStr string, available bool, price string, quantity int) (*orders.Service, *orders.OrderRepository, *outbox.Store) {
	t.Helper()

	db := OpenDB(t, connStr)
	repo := orders.NewOrderRepository(db)
	outboxStore := outbox.NewStore(db)

	inventoryServer := stubInventory(t, available, price, quantity)
	usersServer := stubUsers(t)

	logger := discardLogger()
	service := orders.NewService(
		repo,
		users.NewClient(usersServer.URL, usersServer.Client(), logger),
		inventory.NewClient(inventoryServer.URL, inventoryServer.Client(), logger),
		nil,
		logger,
	)

	return service, repo, outboxStore
}

func TestOrderPlacementFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	service, repo, outboxStore := newIntegrationService(t, pg.ConnStr, true, "9.99", 50)

	order, err := service.PlaceOrder(ctx, orders.PlaceOrderInput{
		UserID:          1,
		ShippingAddress: "1 Main St",
		Items:           []orders.ItemRequest{{ProductID: 10, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}

	if order.ID == 0 {
		t.Fatal("expected order id to be assigned")
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected status PENDING, got %s", order.Status)
	}

	fetched, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if fetched == nil {
		t.Fatal("order not found in database")
	}
	if !fetched.TotalAmount.Equal(decimal.RequireFromString("19.98")) {
		t.Errorf("expected total 19.98, got %s", fetched.TotalAmount)
	}
	if len(fetched.Items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(fetched.Items))
	}
	item := fetched.Items[0]
	if item.ProductName != "Integration Widget" || item.ProductSKU != "IW-001" {
		t.Errorf("expected snapshot fields from availability, got %+v", item)
	}
	if !item.Subtotal.Equal(decimal.RequireFromString("19.98")) {
		t.Errorf("expected subtotal 19.98, got %s", item.Subtotal)
	}

	// The OrderCreated event must be durable in the same transaction.
	pending, err := outboxStore.PendingBefore(ctx, time.Now().UTC().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("failed to read outbox: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending outbox event, got %d", len(pending))
	}
	if pending[0].Kind != domain.EventTypeOrderCreated {
		t.Errorf("expected ORDER_CREATED, got %s", pending[0].Kind)
	}

	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(pending[0].Payload, &event); err != nil {
		t.Fatalf("failed to decode event payload: %v", err)
	}
	if event.OrderID != order.ID || event.EventType != domain.EventTypeOrderCreated {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestInsufficientStockPersistsNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	service, repo, _ := newIntegrationService(t, pg.ConnStr, false, "9.99", 1)

	_, err := service.PlaceOrder(ctx, orders.PlaceOrderInput{
		UserID: 1,
		Items:  []orders.ItemRequest{{ProductID: 10, Quantity: 2}},
	})

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductID != 10 {
		t.Errorf("expected error to name product 10, got %d", stockErr.ProductID)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no orders persisted, got %d", len(all))
	}
}

func TestOrderCancellationFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	service, _, outboxStore := newIntegrationService(t, pg.ConnStr, true, "5.00", 10)

	order, err := service.PlaceOrder(ctx, orders.PlaceOrderInput{
		UserID: 1,
		Items:  []orders.ItemRequest{{ProductID: 20, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}

	cancelled, err := service.CancelOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to cancel order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected status CANCELLED, got %s", cancelled.Status)
	}

	pending, err := outboxStore.PendingBefore(ctx, time.Now().UTC().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("failed to read outbox: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending outbox events, got %d", len(pending))
	}
	if pending[1].Kind != domain.EventTypeOrderCancelled {
		t.Errorf("expected second event ORDER_CANCELLED, got %s", pending[1].Kind)
	}

	// A second cancellation must be rejected: CANCELLED is absorbing.
	_, err = service.CancelOrder(ctx, order.ID)
	var transErr *domain.InvalidTransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transErr.Current != domain.OrderStatusCancelled {
		t.Errorf("expected error to carry CANCELLED, got %s", transErr.Current)
	}
}

func TestOutboxDispatchToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	service, _, outboxStore := newIntegrationService(t, pg.ConnStr, true, "9.99", 50)

	order, err := service.PlaceOrder(ctx, orders.PlaceOrderInput{
		UserID: 1,
		Items:  []orders.ItemRequest{{ProductID: 10, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}

	producer := messaging.NewProducer(brokers, "order.events")
	defer func() { _ = producer.Close() }()

	dispatcher := outbox.NewDispatcher(outboxStore, producer, discardLogger(), outbox.WithGrace(0))
	published, err := dispatcher.DispatchPending(ctx)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if published != 1 {
		t.Fatalf("expected 1 published event, got %d", published)
	}

	// Nothing left pending after a successful dispatch.
	pending, err := outboxStore.PendingBefore(ctx, time.Now().UTC().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("failed to read outbox: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending events, got %d", len(pending))
	}

	consumer := messaging.NewConsumer(brokers, "order.events", "integration-test",
		messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	received := make(chan domain.OrderCreatedEvent, 1)
	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	go func() {
		_ = consumer.Consume(consumeCtx, func(_ context.Context, payload []byte) error {
			var event domain.OrderCreatedEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return err
			}
			received <- event
			stopConsumer()
			return nil
		})
	}()

	select {
	case event := <-received:
		if event.OrderID != order.ID {
			t.Errorf("expected event for order %d, got %d", order.ID, event.OrderID)
		}
		if !event.TotalAmount.Equal(decimal.RequireFromString("19.98")) {
			t.Errorf("expected total 19.98, got %s", event.TotalAmount)
		}
	case <-time.After(90 * time.Second):
		t.Fatal("timed out waiting for the dispatched event")
	}
}
