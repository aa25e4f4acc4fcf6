package store

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// CreateOrder creates a new order
func (q *Queries) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (order_number, user_id, total_amount, total_items, shipping_address, notes, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return q.get(ctx, order, query,
		order.OrderNumber, order.UserID, order.TotalAmount, order.TotalItems,
		order.ShippingAddress, order.Notes, order.Status, order.PaymentStatus)
}

// CreateOrderItem creates a new order item
func (q *Queries) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return q.get(ctx, item, query,
		item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price, item.Subtotal)
}

// GetOrderByID retrieves an order by ID
func (q *Queries) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := q.get(ctx, &order, "SELECT * FROM orders WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("order %d: %w", id, err)
	}
	return &order, nil
}

// GetOrderForUpdate retrieves an order and locks it for the enclosing transaction
func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := q.get(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, fmt.Errorf("order %d: %w", id, err)
	}
	return &order, nil
}

// ListOrders returns a page of orders, newest first, and the total count
func (q *Queries) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	var (
		clause string
		args   []interface{}
	)
	if filter.UserID != nil {
		clause = " WHERE user_id = $1"
		args = append(args, *filter.UserID)
	}

	var total int
	if err := q.get(ctx, &total, "SELECT COUNT(*) FROM orders"+clause, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf("SELECT * FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		clause, len(args)-1, len(args))

	orders := []models.Order{}
	if err := q.selectAll(ctx, &orders, query, args...); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (q *Queries) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := q.selectAll(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetOrderItemsByOrderIDs retrieves the items of several orders in one query
func (q *Queries) GetOrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []models.OrderItem{}, nil
	}

	query, args, err := q.in("SELECT * FROM order_items WHERE order_id IN (?) ORDER BY order_id, id", orderIDs)
	if err != nil {
		return nil, err
	}

	items := []models.OrderItem{}
	err = q.selectAll(ctx, &items, query, args...)
	return items, err
}

// UpdateOrderStatus updates order status
func (q *Queries) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	return q.execOne(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
}

// UpdatePaymentStatus updates the payment status of an order
func (q *Queries) UpdatePaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) error {
	return q.execOne(ctx,
		"UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
}

// GetOrderStats aggregates order counts and revenue from completed payments
func (q *Queries) GetOrderStats(ctx context.Context) (*models.OrderStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_orders,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending_orders,
			COUNT(*) FILTER (WHERE status = 'delivered') AS completed_orders,
			COALESCE(SUM(total_amount) FILTER (WHERE payment_status = 'completed'), 0) AS total_revenue
		FROM orders`

	var stats models.OrderStats
	if err := q.get(ctx, &stats, query); err != nil {
		return nil, err
	}
	return &stats, nil
}
