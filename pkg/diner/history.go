package diner

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/momomagic/momo/pkg/enums/billingstatus"
	"github.com/momomagic/momo/pkg/enums/orderstatus"
)

// BillingState is the last known session billing status. Optimistic marks
// a value set locally ahead of any server confirmation.
type BillingState struct {
	Status     string `json:"status"`
	Optimistic bool   `json:"optimistic"`
}

type cachedOrders struct {
	SessionID string       `json:"session_id"`
	Orders    []Order      `json:"orders"`
	Billing   BillingState `json:"billing"`
}

// History is the read-through cache of the session's orders.
type History struct {
	mu       sync.Mutex
	orders   []Order
	billing  BillingState
	sessions *SessionManager
	api      OrderAPI
	storage  Storage
	timeout  time.Duration
	logger   apt.Logger
}

func NewHistory(sessions *SessionManager, api OrderAPI, storage Storage, timeout time.Duration, logger apt.Logger) *History {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	h := &History{
		sessions: sessions,
		api:      api,
		storage:  storage,
		timeout:  timeout,
		logger:   logger.With("component", "History"),
		billing:  BillingState{Status: billingstatus.Statuses.Unpaid.Code()},
	}

	var cached cachedOrders
	if s, ok := sessions.Current(); ok && loadState(storage, KeyOrders, &cached, h.logger) && cached.SessionID == s.ID {
		h.orders = cached.Orders
		if cached.Billing.Status != "" {
			h.billing = cached.Billing
		}
	}
	return h
}

// Refresh replaces the local history with the server's list for the
// current session. On failure the previous history stays as it was and
// nil is returned with the error.
func (h *History) Refresh(ctx context.Context) ([]Order, error) {
	s, ok := h.sessions.Current()
	if !ok {
		return []Order{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	orders, err := h.api.SessionOrders(ctx, s.ID)
	if err != nil {
		h.logger.Info("history refresh failed", "session_id", s.ID, "error", err)
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = append([]Order(nil), orders...)
	if len(orders) > 0 {
		h.billing = BillingState{Status: billingstatus.Normalize(orders[0].BillingStatus).Code()}
	}
	h.persistLocked(s.ID)
	return h.copyLocked(), nil
}

// Prepend puts a freshly placed order at the head of the history.
func (h *History) Prepend(o Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = append([]Order{o}, h.orders...)
	h.persistLocked(o.SessionID)
}

// ApplyStatusPush overwrites the status of orderID. It reports false when
// the order is not in the history.
func (h *History) ApplyStatusPush(orderID, status string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.orders {
		if h.orders[i].ID == orderID {
			h.orders[i].Status = status
			h.persistLocked(h.orders[i].SessionID)
			return true
		}
	}
	return false
}

func (h *History) Orders() []Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.copyLocked()
}

// InProgress lists orders the kitchen is still working on.
func (h *History) InProgress() []Order {
	return h.filter(func(s orderstatus.Status) bool { return s.InProgress() })
}

// Completed lists served and cancelled orders.
func (h *History) Completed() []Order {
	return h.filter(func(s orderstatus.Status) bool { return s.Terminal() })
}

func (h *History) BillingState() BillingState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.billing
}

// SetConfirmedBilling records a status observed from the server.
func (h *History) SetConfirmedBilling(status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.billing = BillingState{Status: billingstatus.Normalize(status).Code()}
	h.persistLocked(h.sessionIDLocked())
}

// MarkOptimistic records a status the diner asked for but the server has
// not confirmed yet.
func (h *History) MarkOptimistic(status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.billing = BillingState{Status: billingstatus.Normalize(status).Code(), Optimistic: true}
	h.persistLocked(h.sessionIDLocked())
}

// Reset forgets every order and the billing status.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = nil
	h.billing = BillingState{Status: billingstatus.Statuses.Unpaid.Code()}
	deleteState(h.storage, KeyOrders, h.logger)
}

func (h *History) filter(keep func(orderstatus.Status) bool) []Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Order
	for _, o := range h.orders {
		if s := orderstatus.ByName(o.Status); s != nil && keep(*s) {
			out = append(out, o)
		}
	}
	return out
}

func (h *History) copyLocked() []Order {
	return append([]Order{}, h.orders...)
}

func (h *History) sessionIDLocked() string {
	if len(h.orders) > 0 {
		return h.orders[0].SessionID
	}
	if s, ok := h.sessions.Current(); ok {
		return s.ID
	}
	return ""
}

func (h *History) persistLocked(sessionID string) {
	if sessionID == "" {
		return
	}
	saveState(h.storage, KeyOrders, cachedOrders{SessionID: sessionID, Orders: h.orders, Billing: h.billing}, h.logger)
}
