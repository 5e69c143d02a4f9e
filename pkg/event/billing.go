package event

import "time"

const (
	// SessionBillingTopic carries session-wide billing status changes.
	SessionBillingTopic = "sessions.billing"

	EventBillingStatusChanged = "billing.status.changed"
)

// BillingStatusChangedEvent reports the billing status shared by every order of a session.
type BillingStatusChangedEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	SessionID      string    `json:"session_id"`
	TableNumber    int       `json:"table_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Source         string    `json:"source,omitempty"`
}
