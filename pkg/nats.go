package pkg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
)

func connectNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := connectNATS(url, "momo-publisher")
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	return nil
}

// NATSSubscriber fans NATS messages into events.HandlerFunc callbacks.
// Delivery is at-most-once; handler errors are logged and the message is dropped.
type NATSSubscriber struct {
	conn   *nats.Conn
	logger apt.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

func NewNATSSubscriber(url string, logger apt.Logger) (*NATSSubscriber, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	conn, err := connectNATS(url, "momo-subscriber")
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: conn, logger: logger}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil {
			s.logger.Info("event handler failed", "topic", topic, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cannot subscribe to %s: %w", topic, err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return nil
}

func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	s.mu.Unlock()

	s.conn.Close()
	return nil
}
