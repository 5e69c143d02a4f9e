package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/momomagic/momo/pkg/enums/billingstatus"
	"github.com/momomagic/momo/pkg/event"
)

var (
	ErrSessionNotFound   = errors.New("session has no orders")
	ErrBillingBackwards  = errors.New("billing status cannot move backwards")
	ErrUnknownBilling    = errors.New("unknown billing status")
	ErrSessionSettled    = errors.New("session is already paid")
	ErrSessionIDRequired = errors.New("session id is required")
)

// BillingResult reports the session status after a billing operation.
type BillingResult struct {
	SessionID     string `json:"session_id"`
	BillingStatus string `json:"billing_status"`
	Changed       bool   `json:"changed"`
}

// SessionBilling keeps one billing status per session consistent across
// every order and the bill record.
type SessionBilling struct {
	orders    OrderRepo
	bills     BillRepo
	locker    Locker
	publisher events.Publisher
	logger    apt.Logger
}

func NewSessionBilling(orders OrderRepo, bills BillRepo, locker Locker, publisher events.Publisher, logger apt.Logger) *SessionBilling {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &SessionBilling{
		orders:    orders,
		bills:     bills,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
	}
}

// Status returns the current billing status of the session and its orders.
// Orders that drifted apart are resolved to the furthest status reached.
func (s *SessionBilling) Status(ctx context.Context, sessionID string) (billingstatus.Status, []*Order, error) {
	if sessionID == "" {
		return billingstatus.Statuses.Unpaid, nil, ErrSessionIDRequired
	}
	orders, err := s.orders.ListBySession(ctx, sessionID)
	if err != nil {
		return billingstatus.Statuses.Unpaid, nil, err
	}
	current := billingstatus.Statuses.Unpaid
	for _, o := range orders {
		st := billingstatus.Normalize(o.BillingStatus)
		if st.Rank() > current.Rank() {
			current = st
		}
	}
	return current, orders, nil
}

// RequestPayment moves an unpaid session to pending_payment. Sessions already
// pending or paid are acknowledged without change.
func (s *SessionBilling) RequestPayment(ctx context.Context, sessionID string) (BillingResult, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return BillingResult{}, err
	}
	defer unlock()

	current, orders, err := s.Status(ctx, sessionID)
	if err != nil {
		return BillingResult{}, err
	}
	if len(orders) == 0 {
		return BillingResult{}, ErrSessionNotFound
	}

	result := BillingResult{SessionID: sessionID, BillingStatus: current.Code()}
	if current != billingstatus.Statuses.Unpaid {
		s.log().Debug("payment already requested", "session_id", sessionID, "billing_status", current.Code())
		return result, nil
	}

	next := billingstatus.Statuses.PendingPayment
	if _, err := s.finalizeLocked(ctx, sessionID, orders, next); err != nil {
		return BillingResult{}, err
	}
	if err := s.apply(ctx, sessionID, next); err != nil {
		return BillingResult{}, err
	}

	s.publishBillingChanged(ctx, sessionID, orders[0].TableNumber, current, next, "customer")
	result.BillingStatus = next.Code()
	result.Changed = true
	return result, nil
}

// Transition sets the session billing status on behalf of staff.
func (s *SessionBilling) Transition(ctx context.Context, sessionID, target string) (BillingResult, error) {
	next := billingstatus.ByName(target)
	if next == nil {
		return BillingResult{}, fmt.Errorf("%w: %s", ErrUnknownBilling, target)
	}

	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return BillingResult{}, err
	}
	defer unlock()

	current, orders, err := s.Status(ctx, sessionID)
	if err != nil {
		return BillingResult{}, err
	}
	if len(orders) == 0 {
		return BillingResult{}, ErrSessionNotFound
	}
	if !current.Allows(*next) {
		return BillingResult{}, fmt.Errorf("%w: %s to %s", ErrBillingBackwards, current.Code(), next.Code())
	}

	result := BillingResult{SessionID: sessionID, BillingStatus: next.Code()}
	if current == *next {
		return result, nil
	}

	if _, err := s.finalizeLocked(ctx, sessionID, orders, *next); err != nil {
		return BillingResult{}, err
	}
	if err := s.apply(ctx, sessionID, *next); err != nil {
		return BillingResult{}, err
	}

	s.publishBillingChanged(ctx, sessionID, orders[0].TableNumber, current, *next, "staff")
	result.Changed = true
	return result, nil
}

// Place stores a new order under the session lock. The order inherits the
// session billing status, and an existing bill is consolidated again so it
// includes the new order.
func (s *SessionBilling) Place(ctx context.Context, order *Order) error {
	unlock, err := s.lock(ctx, order.SessionID)
	if err != nil {
		return err
	}
	defer unlock()

	current, orders, err := s.Status(ctx, order.SessionID)
	if err != nil {
		return fmt.Errorf("cannot resolve session billing status: %w", err)
	}
	if current == billingstatus.Statuses.Paid {
		return ErrSessionSettled
	}

	order.BillingStatus = current.Code()
	if err := s.orders.Create(ctx, order); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}

	s.resyncLocked(ctx, order.SessionID, append(orders, order))
	return nil
}

// Resync consolidates an existing unpaid bill against the current orders of
// the session. Sessions without a bill are left alone.
func (s *SessionBilling) Resync(ctx context.Context, sessionID string) (*Bill, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	orders, err := s.orders.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.resyncLocked(ctx, sessionID, orders), nil
}

func (s *SessionBilling) resyncLocked(ctx context.Context, sessionID string, orders []*Order) *Bill {
	if s.bills == nil {
		return nil
	}
	bill, err := s.bills.GetBySession(ctx, sessionID)
	if err != nil {
		s.log().Error("cannot load bill for resync", "error", err, "session_id", sessionID)
		return nil
	}
	if bill == nil || billingstatus.Normalize(bill.BillingStatus) == billingstatus.Statuses.Paid {
		return bill
	}

	bill.Consolidate(orders)
	if err := s.bills.Save(ctx, bill); err != nil {
		s.log().Error("cannot save resynced bill", "error", err, "session_id", sessionID)
		return nil
	}
	s.log().Debug("bill resynced", "session_id", sessionID, "total", bill.Total)
	return bill
}

// Bill returns the persisted bill of a session, or nil when none exists yet.
func (s *SessionBilling) Bill(ctx context.Context, sessionID string) (*Bill, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	if s.bills == nil {
		return nil, nil
	}
	return s.bills.GetBySession(ctx, sessionID)
}

// Finalize persists the consolidated bill for the session.
func (s *SessionBilling) Finalize(ctx context.Context, sessionID string) (*Bill, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, orders, err := s.Status(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrSessionNotFound
	}
	return s.finalizeLocked(ctx, sessionID, orders, current)
}

func (s *SessionBilling) finalizeLocked(ctx context.Context, sessionID string, orders []*Order, status billingstatus.Status) (*Bill, error) {
	if s.bills == nil {
		return nil, nil
	}

	bill, err := s.bills.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("cannot load bill: %w", err)
	}
	if bill == nil {
		bill = NewBill(sessionID)
	}

	// A settled bill is final; only its status is kept in sync.
	if billingstatus.Normalize(bill.BillingStatus) != billingstatus.Statuses.Paid {
		bill.Consolidate(orders)
	}
	bill.BillingStatus = status.Code()

	if err := s.bills.Save(ctx, bill); err != nil {
		return nil, fmt.Errorf("cannot save bill: %w", err)
	}
	return bill, nil
}

func (s *SessionBilling) apply(ctx context.Context, sessionID string, status billingstatus.Status) error {
	if _, err := s.orders.SetBillingStatus(ctx, sessionID, status.Code()); err != nil {
		return fmt.Errorf("cannot update orders billing status: %w", err)
	}
	if s.bills != nil {
		if err := s.bills.SetBillingStatus(ctx, sessionID, status.Code()); err != nil {
			return fmt.Errorf("cannot update bill billing status: %w", err)
		}
	}
	return nil
}

func (s *SessionBilling) lock(ctx context.Context, sessionID string) (func(), error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, "billing:"+sessionID)
	if err != nil {
		return nil, fmt.Errorf("cannot lock session %s: %w", sessionID, err)
	}
	return unlock, nil
}

func (s *SessionBilling) publishBillingChanged(ctx context.Context, sessionID string, tableNumber int, previous, next billingstatus.Status, source string) {
	if s.publisher == nil {
		return
	}
	evt := event.BillingStatusChangedEvent{
		EventType:      event.EventBillingStatusChanged,
		OccurredAt:     time.Now().UTC(),
		SessionID:      sessionID,
		TableNumber:    tableNumber,
		Status:         next.Code(),
		PreviousStatus: previous.Code(),
		Source:         source,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		s.log().Error("cannot marshal billing status event", "error", err, "session_id", sessionID)
		return
	}
	if err := s.publisher.Publish(ctx, event.SessionBillingTopic, payload); err != nil {
		s.log().Error("cannot publish billing status event", "error", err, "session_id", sessionID)
		return
	}
	s.log().Info("published billing status change", "session_id", sessionID, "status", next.Code())
}

func (s *SessionBilling) log() apt.Logger {
	return s.logger.With("component", "SessionBilling")
}
