package event

import "time"

const (
	// OrderPlacedTopic carries newly created orders for staff dashboards.
	OrderPlacedTopic = "orders.placed"
	// OrderStatusTopic carries kitchen/staff driven order status changes.
	OrderStatusTopic = "orders.status"

	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status.changed"
)

// OrderPlacedEvent is published once the order service has persisted an order.
type OrderPlacedEvent struct {
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	SessionID   string    `json:"session_id"`
	TableNumber int       `json:"table_number"`
	Status      string    `json:"status"`
	ItemCount   int       `json:"item_count"`
	Total       float64   `json:"total"`
}

// OrderStatusChangedEvent carries the new absolute status of one order.
// Consumers apply it as a set, never as a relative transition.
type OrderStatusChangedEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	OrderID        string    `json:"order_id"`
	SessionID      string    `json:"session_id"`
	TableNumber    int       `json:"table_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
}
