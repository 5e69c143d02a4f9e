package diner

import "time"

// Customization is an optional add-on to a cart line with its per-unit price delta.
type Customization struct {
	Name       string  `json:"name"`
	PriceDelta float64 `json:"price_delta"`
}

// CartItem is a pending, unsubmitted order line.
type CartItem struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      float64         `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	Description    string          `json:"description,omitempty"`
	ImageRef       string          `json:"image_ref,omitempty"`
	IsVeg          bool            `json:"is_veg"`
	Customizations []Customization `json:"customizations,omitempty"`
	// SystemAdded marks lines the cart inserted on its own.
	SystemAdded bool `json:"system_added,omitempty"`
}

// OrderItem is the frozen copy of a cart line inside a submitted order.
type OrderItem struct {
	MenuItemID     string          `json:"menu_item_id"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	Price          float64         `json:"price"`
	Description    string          `json:"description,omitempty"`
	ImageLink      string          `json:"image_link,omitempty"`
	IsVeg          bool            `json:"is_veg"`
	Customizations []Customization `json:"customizations,omitempty"`
}

// Order is the server's canonical order as seen by the diner.
type Order struct {
	ID            string      `json:"id"`
	OrderNumber   string      `json:"order_number"`
	SessionID     string      `json:"session_id"`
	TableNumber   int         `json:"table_number"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	CustomerID    string      `json:"customer_id,omitempty"`
	Items         []OrderItem `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Tax           float64     `json:"tax"`
	Total         float64     `json:"total"`
	Status        string      `json:"status"`
	BillingStatus string      `json:"billing_status"`
	EstimatedTime int         `json:"estimated_time"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Customer is the identity returned by phone verification.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// MenuItem is the catalog entry the cart needs for the auto-add rule.
type MenuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageLink   string  `json:"image_link,omitempty"`
	IsVeg       bool    `json:"is_veg"`
	Available   bool    `json:"available"`
	AutoAdd     bool    `json:"auto_add"`
}

// ServerBill is the persisted consolidated bill of a session.
type ServerBill struct {
	ID            string      `json:"id"`
	BillNumber    string      `json:"bill_number"`
	SessionID     string      `json:"session_id"`
	TableNumber   int         `json:"table_number"`
	Items         []OrderItem `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Tax           float64     `json:"tax"`
	Total         float64     `json:"total"`
	BillingStatus string      `json:"billing_status"`
	CreatedAt     time.Time   `json:"created_at"`
}

// PaymentAck is the server's receipt for a payment request.
type PaymentAck struct {
	SessionID     string `json:"session_id"`
	BillingStatus string `json:"billing_status"`
	Changed       bool   `json:"changed"`
}

// CreateOrderRequest is the order submission payload.
type CreateOrderRequest struct {
	SessionID     string      `json:"session_id"`
	OrderNumber   string      `json:"order_number"`
	TableNumber   int         `json:"table_number"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	UserID        string      `json:"user_id,omitempty"`
	CustomerID    string      `json:"customer_id,omitempty"`
	Items         []OrderItem `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Tax           float64     `json:"tax"`
	Total         float64     `json:"total"`
	EstimatedTime int         `json:"estimated_time"`
}
