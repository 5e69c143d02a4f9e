package event

import "strconv"

// Push message types exchanged over the websocket channel.
const (
	PushJoin                 = "join"
	PushLeave                = "leave"
	PushJoined               = "joined"
	PushError                = "error"
	PushOrderPlaced          = "order_placed"
	PushOrderStatusChanged   = "order_status_changed"
	PushBillingStatusChanged = "billing_status_changed"
)

// AdminRoom receives every push event.
const AdminRoom = "admin"

// TableRoom is the room a table's diners join.
func TableRoom(tableNumber int) string {
	return "table_" + strconv.Itoa(tableNumber)
}

// PushMessage is the single frame shape used in both directions.
type PushMessage struct {
	Type        string `json:"type"`
	Room        string `json:"room,omitempty"`
	Token       string `json:"token,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	TableNumber int    `json:"table_number,omitempty"`
	Status      string `json:"status,omitempty"`
	Message     string `json:"message,omitempty"`
}
