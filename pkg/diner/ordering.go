package diner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/momomagic/momo/pkg/pricing"
)

// DefaultEstimatedMinutes is sent when the caller gives no estimate.
const DefaultEstimatedMinutes = 20

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrSubmissionInFlight = errors.New("an order is already being placed")
)

// OrderDetails is what the diner supplies at checkout.
type OrderDetails struct {
	TableNumber   int
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	EstimatedTime int
}

// OrderSummary is the display ready confirmation of a placed order.
type OrderSummary struct {
	Order       Order
	OrderNumber string
	TableNumber int
	Status      string
	Items       []OrderItem
	Subtotal    float64
	Tax         float64
	Total       float64
	Date        string
	Time        string
	Barcode     string
}

// Ordering turns the cart into a server order.
type Ordering struct {
	cart     *Cart
	sessions *SessionManager
	history  *History
	identity *Identity
	api      OrderAPI
	timeout  time.Duration
	now      func() time.Time
	logger   apt.Logger
	inFlight atomic.Bool
}

func NewOrdering(cart *Cart, sessions *SessionManager, history *History, identity *Identity, api OrderAPI, timeout time.Duration, logger apt.Logger) *Ordering {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Ordering{
		cart:     cart,
		sessions: sessions,
		history:  history,
		identity: identity,
		api:      api,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger.With("component", "Ordering"),
	}
}

// PlaceOrder submits the cart. The cart is cleared and the order prepended
// to the history only after the server accepted it.
func (o *Ordering) PlaceOrder(ctx context.Context, details OrderDetails) (*OrderSummary, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer o.inFlight.Store(false)

	items := o.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	_, hadSession := o.sessions.Current()
	sessionID, err := o.sessions.GetOrCreate(details.TableNumber)
	if err != nil {
		return nil, err
	}
	session, ok := o.sessions.Current()
	if !ok {
		return nil, ErrNoSession
	}

	req := o.buildRequest(session, details, items)

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	created, err := o.api.CreateOrder(callCtx, req)
	if err == nil && (created == nil || created.ID == "") {
		err = fmt.Errorf("create order: empty response")
	}
	if err != nil {
		o.logger.Info("order submission failed", "session_id", sessionID, "error", err)
		if !hadSession {
			o.sessions.Discard(sessionID)
		}
		return nil, err
	}

	o.history.Prepend(*created)
	o.cart.Clear()
	o.logger.Info("order placed", "order_id", created.ID, "order_number", created.OrderNumber, "session_id", sessionID)

	return summarize(*created, o.now()), nil
}

// InFlight reports whether a submission is running.
func (o *Ordering) InFlight() bool {
	return o.inFlight.Load()
}

func (o *Ordering) buildRequest(s Session, details OrderDetails, items []CartItem) CreateOrderRequest {
	totals := pricing.Compute(linesOf(items)).Rounded()

	req := CreateOrderRequest{
		SessionID:     s.ID,
		OrderNumber:   orderNumber(o.now()),
		TableNumber:   s.TableNumber,
		CustomerName:  strings.TrimSpace(details.CustomerName),
		CustomerPhone: strings.TrimSpace(details.CustomerPhone),
		CustomerEmail: strings.TrimSpace(details.CustomerEmail),
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		EstimatedTime: details.EstimatedTime,
	}
	if req.EstimatedTime <= 0 {
		req.EstimatedTime = DefaultEstimatedMinutes
	}

	if c, ok := o.customer(); ok {
		req.CustomerID = c.ID
		req.UserID = c.ID
		if c.Name != "" {
			req.CustomerName = c.Name
		}
		if c.Phone != "" {
			req.CustomerPhone = c.Phone
		}
		if c.Email != "" {
			req.CustomerEmail = c.Email
		}
	}
	if req.CustomerName == "" {
		req.CustomerName = DefaultGuestName
	}

	req.Items = make([]OrderItem, 0, len(items))
	for _, it := range items {
		req.Items = append(req.Items, OrderItem{
			MenuItemID:     it.ProductID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			Price:          it.UnitPrice,
			Description:    it.Description,
			ImageLink:      it.ImageRef,
			IsVeg:          it.IsVeg,
			Customizations: append([]Customization(nil), it.Customizations...),
		})
	}
	return req
}

func (o *Ordering) customer() (Customer, bool) {
	if o.identity == nil {
		return Customer{}, false
	}
	return o.identity.Customer()
}

func summarize(o Order, now time.Time) *OrderSummary {
	at := o.CreatedAt
	if at.IsZero() {
		at = now
	}
	at = at.Local()

	return &OrderSummary{
		Order:       o,
		OrderNumber: o.OrderNumber,
		TableNumber: o.TableNumber,
		Status:      o.Status,
		Items:       o.Items,
		Subtotal:    pricing.Round2(o.Subtotal),
		Tax:         pricing.Round2(o.Tax),
		Total:       pricing.Round2(o.Total),
		Date:        FormatDate(at),
		Time:        FormatTime(at),
		Barcode:     Barcode(o.OrderNumber),
	}
}

// Barcode renders an order number in Code 39 display form.
func Barcode(orderNumber string) string {
	return "*" + strings.ToUpper(orderNumber) + "*"
}

func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func FormatTime(t time.Time) string {
	return t.Format("3:04 PM")
}

func orderNumber(at time.Time) string {
	return fmt.Sprintf("MM-%s-%04d", at.Format("20060102"), at.UnixMicro()%10000)
}

func linesOf(items []CartItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, lineOf(it))
	}
	return lines
}
