package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/momomagic/momo/pkg/event"
)

// Broadcaster is the part of the hub the relay writes to.
type Broadcaster interface {
	Broadcast(room string, msg event.PushMessage) int
}

// Relay forwards order and billing events from the bus to websocket rooms.
type Relay struct {
	subscriber events.Subscriber
	hub        Broadcaster
	logger     apt.Logger
}

func NewRelay(subscriber events.Subscriber, hub Broadcaster, logger apt.Logger) *Relay {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Relay{
		subscriber: subscriber,
		hub:        hub,
		logger:     logger,
	}
}

func (r *Relay) Start(ctx context.Context) error {
	topics := []struct {
		name    string
		handler events.HandlerFunc
	}{
		{event.OrderPlacedTopic, r.handleOrderPlaced},
		{event.OrderStatusTopic, r.handleOrderStatus},
		{event.SessionBillingTopic, r.handleBillingStatus},
	}

	for _, t := range topics {
		if err := r.subscriber.Subscribe(ctx, t.name, t.handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", t.name, err)
		}
	}

	r.log().Info("relay started", "topics", len(topics))
	return nil
}

func (r *Relay) handleOrderPlaced(ctx context.Context, msg []byte) error {
	var evt event.OrderPlacedEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		r.log().Errorf("cannot decode order placed event: %v", err)
		return nil
	}

	r.fanOut(evt.TableNumber, event.PushMessage{
		Type:        event.PushOrderPlaced,
		OrderID:     evt.OrderID,
		OrderNumber: evt.OrderNumber,
		SessionID:   evt.SessionID,
		TableNumber: evt.TableNumber,
		Status:      evt.Status,
	})
	return nil
}

func (r *Relay) handleOrderStatus(ctx context.Context, msg []byte) error {
	var evt event.OrderStatusChangedEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		r.log().Errorf("cannot decode order status event: %v", err)
		return nil
	}

	r.fanOut(evt.TableNumber, event.PushMessage{
		Type:        event.PushOrderStatusChanged,
		OrderID:     evt.OrderID,
		SessionID:   evt.SessionID,
		TableNumber: evt.TableNumber,
		Status:      evt.Status,
	})
	return nil
}

func (r *Relay) handleBillingStatus(ctx context.Context, msg []byte) error {
	var evt event.BillingStatusChangedEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		r.log().Errorf("cannot decode billing status event: %v", err)
		return nil
	}

	r.fanOut(evt.TableNumber, event.PushMessage{
		Type:        event.PushBillingStatusChanged,
		SessionID:   evt.SessionID,
		TableNumber: evt.TableNumber,
		Status:      evt.Status,
	})
	return nil
}

// fanOut sends to the admin room and, when known, to the table's room.
func (r *Relay) fanOut(tableNumber int, msg event.PushMessage) {
	delivered := r.hub.Broadcast(event.AdminRoom, msg)
	if tableNumber > 0 {
		delivered += r.hub.Broadcast(event.TableRoom(tableNumber), msg)
	}
	r.log().Debug("push relayed", "type", msg.Type, "table_number", tableNumber, "delivered", delivered)
}

func (r *Relay) log() apt.Logger {
	return r.logger.With("component", "Relay")
}
