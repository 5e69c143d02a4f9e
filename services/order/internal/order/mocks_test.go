package order

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	Published   []PublishedMessage
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

type PublishedMessage struct {
	Topic   string
	Payload []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PublishedMessage{Topic: topic, Payload: msg})
	return nil
}

func (m *MockPublisher) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	topics := make([]string, 0, len(m.Published))
	for _, p := range m.Published {
		topics = append(topics, p.Topic)
	}
	return topics
}

// MockOrderRepo is a mock implementation of OrderRepo for testing
type MockOrderRepo struct {
	mu         sync.RWMutex
	orders     map[uuid.UUID]*Order
	CreateFunc func(ctx context.Context, order *Order) error
	GetFunc    func(ctx context.Context, id uuid.UUID) (*Order, error)
	SaveFunc   func(ctx context.Context, order *Order) error
	ListFunc   func(ctx context.Context, sessionID string) ([]*Order, error)
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*Order),
	}
}

func (m *MockOrderRepo) Create(ctx context.Context, order *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return order, nil
}

func (m *MockOrderRepo) List(ctx context.Context) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		result = append(result, o)
	}
	return result, nil
}

func (m *MockOrderRepo) ListBySession(ctx context.Context, sessionID string) ([]*Order, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, sessionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if o.SessionID == sessionID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockOrderRepo) ListByStatus(ctx context.Context, status string) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if o.Status == status {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockOrderRepo) Save(ctx context.Context, order *Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderRepo) SetBillingStatus(ctx context.Context, sessionID, status string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.orders {
		if o.SessionID == sessionID {
			o.BillingStatus = status
			n++
		}
	}
	return n, nil
}

func (m *MockOrderRepo) Add(orders ...*Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		m.orders[o.ID] = o
	}
}

// MockBillRepo is a mock implementation of BillRepo for testing
type MockBillRepo struct {
	mu    sync.RWMutex
	bills map[string]*Bill
	Saves int
}

func NewMockBillRepo() *MockBillRepo {
	return &MockBillRepo{
		bills: make(map[string]*Bill),
	}
}

func (m *MockBillRepo) GetBySession(ctx context.Context, sessionID string) (*Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bill, ok := m.bills[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *bill
	return &copied, nil
}

func (m *MockBillRepo) Save(ctx context.Context, bill *Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *bill
	m.bills[bill.SessionID] = &copied
	m.Saves++
	return nil
}

func (m *MockBillRepo) SetBillingStatus(ctx context.Context, sessionID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bill, ok := m.bills[sessionID]; ok {
		bill.BillingStatus = status
	}
	return nil
}

// MockLocker records lock keys and hands out no-op unlock functions.
type MockLocker struct {
	mu       sync.Mutex
	Keys     []string
	Released int
	LockFunc func(ctx context.Context, key string) (func(), error)
}

func (m *MockLocker) Lock(ctx context.Context, key string) (func(), error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, key)
	}
	m.mu.Lock()
	m.Keys = append(m.Keys, key)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.Released++
		m.mu.Unlock()
	}, nil
}

func newSessionOrder(sessionID string, table int, total float64, status string) *Order {
	o := NewOrder()
	o.SessionID = sessionID
	o.TableNumber = table
	o.Status = status
	o.Items = []OrderItem{{MenuItemID: "momo-veg", Name: "Veg Momo", Quantity: 1, Price: total}}
	o.RecalculateTotals()
	o.BeforeCreate()
	return o
}
