package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/momomagic/momo/pkg/event"
)

func (h *Handler) publishOrderPlaced(ctx context.Context, order *Order) {
	if h.publisher == nil {
		return
	}

	evt := event.OrderPlacedEvent{
		EventType:   event.EventOrderPlaced,
		OccurredAt:  time.Now().UTC(),
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		SessionID:   order.SessionID,
		TableNumber: order.TableNumber,
		Status:      order.Status,
		ItemCount:   len(order.Items),
		Total:       order.Total,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal order placed event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event.OrderPlacedTopic, payload); err != nil {
		h.logger.Error("cannot publish order placed event", "error", err, "order_id", order.ID.String())
	} else {
		h.logger.Info("published order placed event", "order_id", order.ID.String(), "table_number", order.TableNumber)
	}
}

func (h *Handler) publishOrderStatusChanged(ctx context.Context, order *Order, previousStatus string) {
	if h.publisher == nil {
		return
	}

	evt := event.OrderStatusChangedEvent{
		EventType:      event.EventOrderStatusChanged,
		OccurredAt:     time.Now().UTC(),
		OrderID:        order.ID.String(),
		SessionID:      order.SessionID,
		TableNumber:    order.TableNumber,
		Status:         order.Status,
		PreviousStatus: previousStatus,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal order status change event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event.OrderStatusTopic, payload); err != nil {
		h.logger.Error("cannot publish order status change event", "error", err)
	} else {
		h.logger.Info("published order status change event", "order_id", order.ID.String(), "status", order.Status)
	}
}
