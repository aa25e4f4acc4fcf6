package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced         = "ORDER_PLACED"
	EventTypeOrderStatusChanged  = "ORDER_STATUS_CHANGED"
	EventTypeOrderCancelled      = "ORDER_CANCELLED"
	EventTypeOrderPaymentUpdated = "ORDER_PAYMENT_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderEvent is published whenever an order changes
type OrderEvent struct {
	BaseEvent
	OrderID        int64           `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	UserID         int64           `json:"user_id"`
	Status         OrderStatus     `json:"status"`
	PreviousStatus OrderStatus     `json:"previous_status,omitempty"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalItems     int             `json:"total_items"`
}
