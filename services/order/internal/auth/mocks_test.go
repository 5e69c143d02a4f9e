package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockCodeStore is an in-memory CodeStore for testing
type MockCodeStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
	PutFunc    func(ctx context.Context, phone string, ch Challenge, ttl time.Duration) error
}

func NewMockCodeStore() *MockCodeStore {
	return &MockCodeStore{challenges: make(map[string]Challenge)}
}

func (m *MockCodeStore) Put(ctx context.Context, phone string, ch Challenge, ttl time.Duration) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, phone, ch, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[phone] = ch
	return nil
}

func (m *MockCodeStore) Get(ctx context.Context, phone string) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[phone]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (m *MockCodeStore) Delete(ctx context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, phone)
	return nil
}

// MockSender records outgoing messages
type MockSender struct {
	mu       sync.Mutex
	Sent     []string
	SendFunc func(ctx context.Context, phone, message string) error
}

func (m *MockSender) Send(ctx context.Context, phone, message string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, phone, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, phone+": "+message)
	return nil
}

// MockCustomerRepo is an in-memory CustomerRepo for testing
type MockCustomerRepo struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*Customer
	Saves     int
}

func NewMockCustomerRepo() *MockCustomerRepo {
	return &MockCustomerRepo{customers: make(map[uuid.UUID]*Customer)}
}

func (m *MockCustomerRepo) GetByPhone(ctx context.Context, phone string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return nil, nil
}

func (m *MockCustomerRepo) Create(ctx context.Context, customer *Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[customer.ID] = customer
	return nil
}

func (m *MockCustomerRepo) Save(ctx context.Context, customer *Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[customer.ID] = customer
	m.Saves++
	return nil
}

func (m *MockCustomerRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.customers)
}

func newTestOTP(store CodeStore, sender SMSSender, code string) *OTPService {
	svc := NewOTPService(store, sender, OTPConfig{}, nil)
	svc.generate = func() (string, error) { return code, nil }
	return svc
}
