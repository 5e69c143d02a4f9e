package realtime

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt/events"

	"github.com/momomagic/momo/pkg/event"
)

// MockSubscriber keeps the handlers registered per topic so tests can deliver messages
type MockSubscriber struct {
	mu            sync.Mutex
	handlers      map[string]events.HandlerFunc
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{handlers: make(map[string]events.HandlerFunc)}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockSubscriber) Deliver(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	if h == nil {
		return nil
	}
	return h(ctx, msg)
}

type broadcast struct {
	Room string
	Msg  event.PushMessage
}

// MockBroadcaster records every broadcast
type MockBroadcaster struct {
	mu   sync.Mutex
	Sent []broadcast
}

func (m *MockBroadcaster) Broadcast(room string, msg event.PushMessage) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, broadcast{Room: room, Msg: msg})
	return 1
}

func (m *MockBroadcaster) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]string, 0, len(m.Sent))
	for _, b := range m.Sent {
		rooms = append(rooms, b.Room)
	}
	return rooms
}
