package diner

import (
	"context"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/momomagic/momo/pkg/enums/billingstatus"
)

// Payments sends the customer's "ready to pay" signal.
type Payments struct {
	api      OrderAPI
	sessions *SessionManager
	history  *History
	timeout  time.Duration
	logger   apt.Logger
}

func NewPayments(api OrderAPI, sessions *SessionManager, history *History, timeout time.Duration, logger apt.Logger) *Payments {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Payments{
		api:      api,
		sessions: sessions,
		history:  history,
		timeout:  timeout,
		logger:   logger.With("component", "Payments"),
	}
}

// RequestPayment asks staff to settle the session. It does nothing once
// the session is pending payment or paid. On success the status is set
// optimistically to pending_payment; only the server can make it paid.
func (p *Payments) RequestPayment(ctx context.Context) error {
	s, ok := p.sessions.Current()
	if !ok {
		return ErrNoSession
	}

	current := billingstatus.Normalize(p.history.BillingState().Status)
	if current.Rank() >= billingstatus.Statuses.PendingPayment.Rank() {
		p.logger.Debug("payment already requested", "session_id", s.ID, "billing_status", current.Code())
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ack, err := p.api.RequestPayment(ctx, s.ID)
	if err != nil {
		p.logger.Info("payment request failed", "session_id", s.ID, "error", err)
		return err
	}

	// A late ack must not undo a paid push that already arrived.
	if billingstatus.Normalize(p.history.BillingState().Status).Rank() < billingstatus.Statuses.PendingPayment.Rank() {
		p.history.MarkOptimistic(billingstatus.Statuses.PendingPayment.Code())
	}
	if ack != nil {
		p.logger.Info("payment requested", "session_id", s.ID, "server_status", ack.BillingStatus, "changed", ack.Changed)
	}
	return nil
}
