package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fmartins/orderhub/internal/domain"
	"github.com/fmartins/orderhub/internal/outbox"
)

// OrderStore is the persistence collaborator. Writes are atomic per call;
// Create and Cancel also append the matching outbox event in the same
// transaction.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) (*outbox.Event, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, id int64) (*domain.Order, *outbox.Event, error)
}

// UserDirectory confirms the requesting user exists. Unknown users return
// domain.UserNotFoundError.
type UserDirectory interface {
	EnsureExists(ctx context.Context, userID int64) error
}

// AvailabilityChecker is the synchronous verification call to the inventory
// owner.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, productID int64, quantity int) (*domain.AvailabilityResult, error)
}

// EventNotifier makes the post-commit delivery attempt. It never fails from
// the caller's perspective.
type EventNotifier interface {
	Deliver(ctx context.Context, ev *outbox.Event)
}

// Service orchestrates placement and cancellation across the verification,
// persistence and notification boundaries.
type Service struct {
	store     OrderStore
	users     UserDirectory
	inventory AvailabilityChecker
	notifier  EventNotifier
	logger    *slog.Logger
}

func NewService(store OrderStore, users UserDirectory, inventory AvailabilityChecker, notifier EventNotifier, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		users:     users,
		inventory: inventory,
		notifier:  notifier,
		logger:    logger,
	}
}

type PlaceOrderInput struct {
	UserID          int64
	ShippingAddress string
	Items           []ItemRequest
}

// PlaceOrder verifies the user, checks availability item by item, persists
// the aggregate and attempts notification. The availability loop is
// deliberately sequential: the first unavailable item aborts the whole
// order, so which item is reported on multi-failure is deterministic.
//
// Notification failure does not fail the call. The order is committed either
// way; the outbox dispatcher retries delivery in the background.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if err := s.users.EnsureExists(ctx, in.UserID); err != nil {
		return nil, err
	}

	results := make([]*domain.AvailabilityResult, 0, len(in.Items))
	for _, item := range in.Items {
		res, err := s.inventory.CheckAvailability(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}

		if !res.Available {
			s.logger.Warn("product unavailable, aborting order",
				"user_id", in.UserID, "product_id", res.ProductID,
				"requested", item.Quantity, "available", res.AvailableQuantity)
			return nil, &domain.InsufficientStockError{
				ProductID:   res.ProductID,
				ProductName: res.ProductName,
				Requested:   item.Quantity,
				Available:   res.AvailableQuantity,
			}
		}

		results = append(results, res)
	}

	order, err := BuildOrder(in.UserID, in.ShippingAddress, in.Items, results)
	if err != nil {
		return nil, err
	}

	ev, err := s.store.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Deliver(ctx, ev)
	}

	s.logger.Info("order placed",
		"order_id", order.ID, "user_id", order.UserID, "total_amount", order.TotalAmount)

	return order, nil
}

// CancelOrder runs the cancellation guard, persists the CANCELLED status and
// attempts the OrderCancelled notification. The inventory owner releases
// reserved stock when it receives the event.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.OrderNotFoundError{OrderID: orderID}
	}

	if !domain.CanCancel(order.Status) {
		return nil, &domain.InvalidTransitionError{Current: order.Status, Action: "cancel"}
	}

	cancelled, ev, err := s.store.Cancel(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("persist cancellation: %w", err)
	}
	if cancelled == nil {
		return nil, &domain.OrderNotFoundError{OrderID: orderID}
	}

	if s.notifier != nil {
		s.notifier.Deliver(ctx, ev)
	}

	s.logger.Info("order cancelled", "order_id", orderID)

	return cancelled, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.OrderNotFoundError{OrderID: orderID}
	}
	return order, nil
}

func (s *Service) ListOrdersForUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	if err := s.users.EnsureExists(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	return s.store.List(ctx)
}

// UpdateStatus advances the lifecycle on behalf of event consumers. Every
// status mutation goes through the transition table; there is no bypass.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.OrderNotFoundError{OrderID: orderID}
	}

	if err := order.TransitionTo(status); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &domain.OrderNotFoundError{OrderID: orderID}
	}

	s.logger.Info("order status updated", "order_id", orderID, "status", status)

	return updated, nil
}
