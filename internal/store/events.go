package store

import (
	"context"

	"storefront/internal/models"
)

// IsEventProcessed checks if an event has been processed
func (q *Queries) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := q.get(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (q *Queries) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := q.exec(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

// AppendOrderHistory records one lifecycle event of an order
func (q *Queries) AppendOrderHistory(ctx context.Context, entry *models.OrderHistoryEntry) error {
	query := `
		INSERT INTO order_history (order_id, event_id, event_type, status, payment_status, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, recorded_at`

	return q.get(ctx, entry, query,
		entry.OrderID, entry.EventID, entry.EventType, entry.Status, entry.PaymentStatus, entry.OccurredAt)
}

// ListOrderHistory returns an order's events in the order they happened
func (q *Queries) ListOrderHistory(ctx context.Context, orderID int64) ([]models.OrderHistoryEntry, error) {
	entries := []models.OrderHistoryEntry{}
	err := q.selectAll(ctx, &entries,
		"SELECT * FROM order_history WHERE order_id = $1 ORDER BY occurred_at, id", orderID)
	return entries, err
}
