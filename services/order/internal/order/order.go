package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/momomagic/momo/pkg/enums/billingstatus"
	"github.com/momomagic/momo/pkg/enums/orderstatus"
	"github.com/momomagic/momo/pkg/pricing"
)

const DefaultEstimatedMinutes = 20

var (
	ErrTerminalStatus = errors.New("order status is final")
	ErrUnknownStatus  = errors.New("unknown order status")
)

// Order is a submitted request to the kitchen. Items, prices and totals are
// frozen at creation; only Status and BillingStatus change afterwards.
type Order struct {
	ID            uuid.UUID   `json:"id" bson:"_id"`
	OrderNumber   string      `json:"order_number" bson:"order_number"`
	SessionID     string      `json:"session_id" bson:"session_id"`
	TableNumber   int         `json:"table_number" bson:"table_number"`
	CustomerName  string      `json:"customer_name" bson:"customer_name"`
	CustomerPhone string      `json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty" bson:"customer_email,omitempty"`
	UserID        string      `json:"user_id,omitempty" bson:"user_id,omitempty"`
	CustomerID    string      `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	Items         []OrderItem `json:"items" bson:"items"`
	Subtotal      float64     `json:"subtotal" bson:"subtotal"`
	Tax           float64     `json:"tax" bson:"tax"`
	Total         float64     `json:"total" bson:"total"`
	Status        string      `json:"status" bson:"status"`
	BillingStatus string      `json:"billing_status" bson:"billing_status"`
	EstimatedTime int         `json:"estimated_time" bson:"estimated_time"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" bson:"updated_at"`
	PreparingAt   *time.Time  `json:"preparing_at,omitempty" bson:"preparing_at,omitempty"`
	ServedAt      *time.Time  `json:"served_at,omitempty" bson:"served_at,omitempty"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

// OrderItem is a snapshot of a cart line taken at submission time.
type OrderItem struct {
	MenuItemID     string          `json:"menu_item_id" bson:"menu_item_id"`
	Name           string          `json:"name" bson:"name"`
	Quantity       int             `json:"quantity" bson:"quantity"`
	Price          float64         `json:"price" bson:"price"`
	Description    string          `json:"description,omitempty" bson:"description,omitempty"`
	ImageLink      string          `json:"image_link,omitempty" bson:"image_link,omitempty"`
	IsVeg          bool            `json:"is_veg" bson:"is_veg"`
	Customizations []Customization `json:"customizations,omitempty" bson:"customizations,omitempty"`
}

type Customization struct {
	Name       string  `json:"name" bson:"name"`
	PriceDelta float64 `json:"price_delta" bson:"price_delta"`
}

func (i OrderItem) line() pricing.Line {
	deltas := make([]float64, 0, len(i.Customizations))
	for _, c := range i.Customizations {
		deltas = append(deltas, c.PriceDelta)
	}
	return pricing.Line{UnitPrice: i.Price, Deltas: deltas, Quantity: i.Quantity}
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func (o *Order) ResourceType() string {
	return "order"
}

func NewOrder() *Order {
	return &Order{
		ID:            apt.GenerateNewID(),
		Status:        orderstatus.Statuses.Pending.Code(),
		BillingStatus: billingstatus.Statuses.Unpaid.Code(),
		EstimatedTime: DefaultEstimatedMinutes,
	}
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	if o.OrderNumber == "" {
		o.OrderNumber = GenerateOrderNumber(time.Now())
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

// RecalculateTotals derives subtotal, tax and total from the item snapshot.
func (o *Order) RecalculateTotals() {
	lines := make([]pricing.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, item.line())
	}
	totals := pricing.Compute(lines).Rounded()
	o.Subtotal = totals.Subtotal
	o.Tax = totals.Tax
	o.Total = totals.Total
}

// ApplyStatus sets the kitchen status. Re-applying the current status is a
// no-op; leaving SERVED or CANCELLED is rejected.
func (o *Order) ApplyStatus(name string) (changed bool, err error) {
	next := orderstatus.ByName(name)
	if next == nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownStatus, name)
	}
	if o.Status == next.Code() {
		return false, nil
	}
	if orderstatus.IsTerminal(o.Status) {
		return false, fmt.Errorf("%w: %s", ErrTerminalStatus, o.Status)
	}

	now := time.Now()
	o.Status = next.Code()
	switch *next {
	case orderstatus.Statuses.Preparing:
		o.PreparingAt = &now
	case orderstatus.Statuses.Served:
		o.ServedAt = &now
	case orderstatus.Statuses.Cancelled:
		o.CancelledAt = &now
	}
	o.BeforeUpdate()
	return true, nil
}

func (o *Order) IsCancelled() bool {
	return o.Status == orderstatus.Statuses.Cancelled.Code()
}

// GenerateOrderNumber builds a human readable number such as MM-20261014-4821.
func GenerateOrderNumber(at time.Time) string {
	return fmt.Sprintf("MM-%s-%04d", at.Format("20060102"), at.UnixNano()/int64(time.Microsecond)%10000)
}
