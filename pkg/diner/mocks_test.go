package diner

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockOrderAPI records calls and answers from an in-memory order list.
type MockOrderAPI struct {
	mu       sync.Mutex
	Created  []CreateOrderRequest
	Orders   []Order
	Bill     *ServerBill
	Payments []string

	CreateOrderFunc    func(ctx context.Context, req CreateOrderRequest) (*Order, error)
	SessionOrdersFunc  func(ctx context.Context, sessionID string) ([]Order, error)
	SessionBillFunc    func(ctx context.Context, sessionID string) (*ServerBill, error)
	RequestPaymentFunc func(ctx context.Context, sessionID string) (*PaymentAck, error)
}

func (m *MockOrderAPI) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	m.mu.Lock()
	m.Created = append(m.Created, req)
	n := len(m.Created)
	m.mu.Unlock()

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}

	o := Order{
		ID:            fmt.Sprintf("order-%d", n),
		OrderNumber:   req.OrderNumber,
		SessionID:     req.SessionID,
		TableNumber:   req.TableNumber,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		CustomerID:    req.CustomerID,
		Items:         req.Items,
		Subtotal:      req.Subtotal,
		Tax:           req.Tax,
		Total:         req.Total,
		Status:        "PENDING",
		BillingStatus: "unpaid",
		EstimatedTime: req.EstimatedTime,
	}
	m.mu.Lock()
	m.Orders = append([]Order{o}, m.Orders...)
	m.mu.Unlock()
	return &o, nil
}

func (m *MockOrderAPI) SessionOrders(ctx context.Context, sessionID string) ([]Order, error) {
	if m.SessionOrdersFunc != nil {
		return m.SessionOrdersFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.Orders {
		if o.SessionID == sessionID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockOrderAPI) SessionBill(ctx context.Context, sessionID string) (*ServerBill, error) {
	if m.SessionBillFunc != nil {
		return m.SessionBillFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Bill, nil
}

func (m *MockOrderAPI) RequestPayment(ctx context.Context, sessionID string) (*PaymentAck, error) {
	m.mu.Lock()
	m.Payments = append(m.Payments, sessionID)
	m.mu.Unlock()
	if m.RequestPaymentFunc != nil {
		return m.RequestPaymentFunc(ctx, sessionID)
	}
	return &PaymentAck{SessionID: sessionID, BillingStatus: "pending_payment", Changed: true}, nil
}

func (m *MockOrderAPI) CreatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

func (m *MockOrderAPI) PaymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payments)
}

// MockCatalog serves menu items from a map.
type MockCatalog struct {
	Items        map[string]*MenuItem
	Calls        int
	MenuItemFunc func(ctx context.Context, id string) (*MenuItem, error)
}

func (m *MockCatalog) MenuItem(ctx context.Context, id string) (*MenuItem, error) {
	m.Calls++
	if m.MenuItemFunc != nil {
		return m.MenuItemFunc(ctx, id)
	}
	return m.Items[id], nil
}

// testClock is a settable clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var (
	momoA = CartItem{ProductID: "A", Name: "Steamed Veg Momo", UnitPrice: 5.00, IsVeg: true}
	momoB = CartItem{ProductID: "B", Name: "Jhol Momo", UnitPrice: 7.50}
)

func complimentary(available bool) *MenuItem {
	return &MenuItem{
		ID:        DefaultAutoAddItemID,
		Name:      "Complimentary Chutney Platter",
		Price:     0,
		Category:  "sides",
		IsVeg:     true,
		Available: available,
		AutoAdd:   true,
	}
}
