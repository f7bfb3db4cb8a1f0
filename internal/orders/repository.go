package orders

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/lib/pq"

	"github.com/fmartins/orderhub/internal/domain"
	"github.com/fmartins/orderhub/internal/outbox"
)

// OrderRepository is the Order Store: orders, their line items and the
// matching outbox event are written atomically per call.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order, its line items and an OrderCreated outbox row
// in one transaction. The order id is assigned here. The returned event is
// already durable; the caller decides whether to attempt delivery now.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*outbox.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, status, total_amount, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`, order.UserID, order.Status, order.TotalAmount, order.ShippingAddress, order.CreatedAt).Scan(&order.ID)
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, product_sku, quantity, price_at_order, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, order.ID, item.ProductID, item.ProductName, item.ProductSKU, item.Quantity, item.PriceAtOrder, item.Subtotal)
		if err != nil {
			return nil, err
		}
	}

	ev, err := outbox.NewEvent(domain.EventTypeOrderCreated, strconv.FormatInt(order.ID, 10), domain.NewOrderCreatedEvent(order))
	if err != nil {
		return nil, err
	}
	if err := outbox.AppendTx(ctx, tx, ev); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return ev, nil
}

// GetByID returns nil, nil when the order does not exist.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_amount, shipping_address, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount,
		&order.ShippingAddress, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, product_name, product_sku, quantity, price_at_order, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderLineItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.ProductSKU,
			&item.Quantity, &item.PriceAtOrder, &item.Subtotal); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, status, total_amount, shipping_address, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, status, total_amount, shipping_address, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`)
}

// list loads orders then their items in a single ANY($1) query keyed by
// order id, preserving the outer ordering.
func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[int64]*domain.Order)
	var orderIDs []int64

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount,
			&order.ShippingAddress, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderLineItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, product_sku, quantity, price_at_order, subtotal
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID int64
		var item domain.OrderLineItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.ProductSKU,
			&item.Quantity, &item.PriceAtOrder, &item.Subtotal); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// UpdateStatus writes a new status. The transition has already been checked
// by the service; this is a plain write. Returns nil, nil when the order
// does not exist.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// Cancel sets the status to CANCELLED and appends the OrderCancelled outbox
// row in the same transaction.
func (r *OrderRepository) Cancel(ctx context.Context, id int64) (*domain.Order, *outbox.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, domain.OrderStatusCancelled, id)
	if err != nil {
		return nil, nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, err
	}
	if rowsAffected == 0 {
		return nil, nil, nil
	}

	ev, err := outbox.NewEvent(domain.EventTypeOrderCancelled, strconv.FormatInt(id, 10), domain.NewOrderCancelledEvent(id))
	if err != nil {
		return nil, nil, err
	}
	if err := outbox.AppendTx(ctx, tx, ev); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return order, ev, nil
}
