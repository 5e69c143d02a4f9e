package diner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/momomagic/momo/pkg/enums/orderstatus"
	"github.com/momomagic/momo/pkg/pricing"
)

// SessionTotals aggregates the non-cancelled orders of a session.
type SessionTotals struct {
	Subtotal   float64 `json:"subtotal"`
	Tax        float64 `json:"tax"`
	Total      float64 `json:"total"`
	OrderCount int     `json:"order_count"`
}

// ComputeSessionTotals sums every order whose status is not CANCELLED.
func ComputeSessionTotals(orders []Order) SessionTotals {
	var parts []pricing.Totals
	for _, o := range orders {
		if isCancelled(o) {
			continue
		}
		parts = append(parts, pricing.Totals{Subtotal: o.Subtotal, Tax: o.Tax, Total: o.Total})
	}
	sum := pricing.Sum(parts...).Rounded()
	return SessionTotals{
		Subtotal:   sum.Subtotal,
		Tax:        sum.Tax,
		Total:      sum.Total,
		OrderCount: len(parts),
	}
}

// BillView is the single object shown as the session bill.
type BillView struct {
	ReferenceNumber string       `json:"reference_number"`
	SessionID       string       `json:"session_id"`
	TableNumber     int          `json:"table_number"`
	Items           []OrderItem  `json:"items"`
	Subtotal        float64      `json:"subtotal"`
	Tax             float64      `json:"tax"`
	Total           float64      `json:"total"`
	OrderCount      int          `json:"order_count"`
	Billing         BillingState `json:"billing"`
	FromServer      bool         `json:"from_server"`
	Date            string       `json:"date"`
	Time            string       `json:"time"`
}

// Bills builds the consolidated bill view of the current session.
type Bills struct {
	mu       sync.Mutex
	cached   *ServerBill
	api      OrderAPI
	history  *History
	sessions *SessionManager
	timeout  time.Duration
	now      func() time.Time
	logger   apt.Logger
}

func NewBills(api OrderAPI, history *History, sessions *SessionManager, timeout time.Duration, logger apt.Logger) *Bills {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Bills{
		api:      api,
		history:  history,
		sessions: sessions,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger.With("component", "Bills"),
	}
}

// GetConsolidatedBill prefers the server's bill record and falls back to
// aggregating the history. The billing status always comes from History.
func (b *Bills) GetConsolidatedBill(ctx context.Context) (*BillView, error) {
	s, ok := b.sessions.Current()
	if !ok {
		return nil, ErrNoSession
	}

	server := b.fetch(ctx, s.ID)
	view := &BillView{
		SessionID:   s.ID,
		TableNumber: s.TableNumber,
		Billing:     b.history.BillingState(),
	}

	if server != nil {
		at := server.CreatedAt
		if at.IsZero() {
			at = b.now()
		}
		view.ReferenceNumber = server.BillNumber
		view.Items = append([]OrderItem(nil), server.Items...)
		view.Subtotal = pricing.Round2(server.Subtotal)
		view.Tax = pricing.Round2(server.Tax)
		view.Total = pricing.Round2(server.Total)
		view.OrderCount = ComputeSessionTotals(b.history.Orders()).OrderCount
		view.FromServer = true
		if server.TableNumber > 0 {
			view.TableNumber = server.TableNumber
		}
		view.Date, view.Time = FormatDate(at.Local()), FormatTime(at.Local())
		if view.ReferenceNumber == "" {
			view.ReferenceNumber = clientReference(s)
		}
		return view, nil
	}

	orders := b.history.Orders()
	totals := ComputeSessionTotals(orders)
	for _, o := range orders {
		if isCancelled(o) {
			continue
		}
		view.Items = append(view.Items, o.Items...)
	}
	view.ReferenceNumber = clientReference(s)
	view.Subtotal, view.Tax, view.Total = totals.Subtotal, totals.Tax, totals.Total
	view.OrderCount = totals.OrderCount
	now := b.now().Local()
	view.Date, view.Time = FormatDate(now), FormatTime(now)
	return view, nil
}

// DropCache forgets the last server bill.
func (b *Bills) DropCache() {
	b.mu.Lock()
	b.cached = nil
	b.mu.Unlock()
}

// fetch loads the server bill, keeping the last good copy when the
// service cannot be reached.
func (b *Bills) fetch(ctx context.Context, sessionID string) *ServerBill {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	bill, err := b.api.SessionBill(ctx, sessionID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.logger.Info("cannot load server bill, using local aggregate", "session_id", sessionID, "error", err)
		if b.cached != nil && b.cached.SessionID == sessionID {
			return b.cached
		}
		return nil
	}
	b.cached = bill
	return bill
}

func clientReference(s Session) string {
	return "BILL-" + strings.ToUpper(s.Suffix())
}

func isCancelled(o Order) bool {
	return strings.EqualFold(o.Status, orderstatus.Statuses.Cancelled.Code())
}
