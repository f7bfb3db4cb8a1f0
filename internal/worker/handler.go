// Package worker consumes the inventory owner's feedback events and drives
// the order lifecycle forward.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fmartins/orderhub/internal/domain"
)

// StatusUpdater is the orchestrator operation the consumer drives. The
// transition table is consulted inside it; the worker never sets status
// directly.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error)
}

type InventoryEventHandler struct {
	orders StatusUpdater
	logger *slog.Logger
}

func NewInventoryEventHandler(orders StatusUpdater, logger *slog.Logger) *InventoryEventHandler {
	return &InventoryEventHandler{
		orders: orders,
		logger: logger,
	}
}

// Handle maps an inventory event to a lifecycle transition. Events that
// cannot be applied (unknown order, illegal transition, unknown type) are
// logged and dropped rather than retried: redelivering them cannot succeed.
func (h *InventoryEventHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.InventoryEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal inventory event: %w", err)
	}

	var target domain.OrderStatus
	switch event.EventType {
	case domain.EventTypeInventoryReserved:
		target = domain.OrderStatusInventoryReserved
	case domain.EventTypeReservationFailed:
		target = domain.OrderStatusFailed
	default:
		h.logger.Warn("ignoring unknown inventory event type",
			"event_type", event.EventType, "order_id", event.OrderID)
		return nil
	}

	if _, err := h.orders.UpdateStatus(ctx, event.OrderID, target); err != nil {
		var notFound *domain.OrderNotFoundError
		var transition *domain.InvalidTransitionError
		if errors.As(err, &notFound) || errors.As(err, &transition) {
			h.logger.Warn("dropping unapplicable inventory event",
				"order_id", event.OrderID, "event_type", event.EventType, "reason", err)
			return nil
		}
		return fmt.Errorf("apply inventory event for order %d: %w", event.OrderID, err)
	}

	h.logger.Info("inventory event applied", "order_id", event.OrderID, "status", target)
	return nil
}
