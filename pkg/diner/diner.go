package diner

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/momomagic/momo/pkg/enums/billingstatus"
	"github.com/momomagic/momo/pkg/event"
)

const (
	DefaultPaidGrace = 3 * time.Second
	// DefaultAutoAddItemID is the complimentary item seeded by the order service.
	DefaultAutoAddItemID = "7d0c8f1e-5b7a-4c39-9a42-0a1f0c0ffee1"
)

type Config struct {
	BaseURL        string
	WSURL          string
	RequestTimeout time.Duration
	PaidGrace      time.Duration
	WSMaxAttempts  int
	WSRetryDelay   time.Duration
	AutoAddItemID  string
	StateDir       string
}

// ConfigFrom reads the diner.* keys.
func ConfigFrom(cfg *apt.Config) Config {
	return Config{
		BaseURL:        cfg.GetStringOrDef("diner.api.url", "http://localhost:8080"),
		WSURL:          cfg.GetStringOrDef("diner.ws.url", "ws://localhost:8080/ws"),
		RequestTimeout: durationOr(cfg, "diner.request.timeout", DefaultRequestTimeout),
		PaidGrace:      durationOr(cfg, "diner.paid.grace", DefaultPaidGrace),
		WSMaxAttempts:  intOr(cfg, "diner.ws.max.attempts", DefaultMaxAttempts),
		WSRetryDelay:   durationOr(cfg, "diner.ws.retry.delay", DefaultRetryDelay),
		AutoAddItemID:  cfg.GetStringOrDef("diner.autoadd.item", DefaultAutoAddItemID),
		StateDir:       cfg.GetStringOrDef("diner.state.dir", ".momo"),
	}
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.PaidGrace <= 0 {
		c.PaidGrace = DefaultPaidGrace
	}
	if c.AutoAddItemID == "" {
		c.AutoAddItemID = DefaultAutoAddItemID
	}
	return c
}

// Deps are the collaborators of the diner app. Storage and API are
// required; the rest fall back to defaults.
type Deps struct {
	Config  Config
	Storage Storage
	API     OrderAPI
	Catalog Catalog
	Channel *Channel
	Logger  apt.Logger
	Now     func() time.Time
}

// App is one diner's ordering client.
type App struct {
	Sessions *SessionManager
	Cart     *Cart
	History  *History
	Identity *Identity
	Ordering *Ordering
	Bills    *Bills
	Payments *Payments
	Channel  *Channel

	cfg     Config
	catalog Catalog
	logger  apt.Logger

	mu        sync.Mutex
	paidTimer *time.Timer
}

func New(deps Deps) *App {
	cfg := deps.Config.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	sessions := NewSessionManager(deps.Storage, now, logger)
	cart := NewCart(deps.Storage, cfg.AutoAddItemID, logger)
	history := NewHistory(sessions, deps.API, deps.Storage, cfg.RequestTimeout, logger)
	identity := NewIdentity(deps.Storage, logger)
	ordering := NewOrdering(cart, sessions, history, identity, deps.API, cfg.RequestTimeout, logger)
	ordering.now = now

	channel := deps.Channel
	if channel == nil {
		channel = NewChannel(ChannelConfig{
			URL:         cfg.WSURL,
			MaxAttempts: cfg.WSMaxAttempts,
			RetryDelay:  cfg.WSRetryDelay,
		}, logger)
	}

	catalog := deps.Catalog
	if catalog == nil {
		if c, ok := deps.API.(Catalog); ok {
			catalog = c
		}
	}

	return &App{
		Sessions: sessions,
		Cart:     cart,
		History:  history,
		Identity: identity,
		Ordering: ordering,
		Bills:    NewBills(deps.API, history, sessions, cfg.RequestTimeout, logger),
		Payments: NewPayments(deps.API, sessions, history, cfg.RequestTimeout, logger),
		Channel:  channel,
		cfg:      cfg,
		catalog:  catalog,
		logger:   logger.With("component", "App"),
	}
}

// Start bootstraps the cart and connects the push channel.
func (a *App) Start(ctx context.Context) error {
	if a.catalog != nil {
		if err := a.Cart.Bootstrap(ctx, a.catalog); err != nil {
			a.logger.Info("cart bootstrap failed", "error", err)
		}
	}

	a.Channel.OnOrderStatus(a.handleOrderStatus)
	a.Channel.OnBillingStatus(a.handleBillingStatus)

	if s, ok := a.Sessions.Current(); ok {
		a.Channel.Join(event.TableRoom(s.TableNumber))
	}
	return a.Channel.Start(ctx)
}

// PlaceOrder submits the cart and subscribes to the table's pushes.
func (a *App) PlaceOrder(ctx context.Context, details OrderDetails) (*OrderSummary, error) {
	summary, err := a.Ordering.PlaceOrder(ctx, details)
	if err != nil {
		return nil, err
	}
	if s, ok := a.Sessions.Current(); ok {
		a.Channel.Join(event.TableRoom(s.TableNumber))
	}
	return summary, nil
}

// EndSession forgets the dining session and everything scoped to it.
func (a *App) EndSession() {
	a.mu.Lock()
	if a.paidTimer != nil {
		a.paidTimer.Stop()
		a.paidTimer = nil
	}
	a.mu.Unlock()

	a.Sessions.End()
	a.History.Reset()
	a.Bills.DropCache()
}

func (a *App) Close() error {
	a.mu.Lock()
	if a.paidTimer != nil {
		a.paidTimer.Stop()
		a.paidTimer = nil
	}
	a.mu.Unlock()
	return a.Channel.Close()
}

func (a *App) handleOrderStatus(evt OrderStatusEvent) {
	if !a.History.ApplyStatusPush(evt.OrderID, evt.Status) {
		a.logger.Debug("status push for unknown order", "order_id", evt.OrderID)
	}
}

func (a *App) handleBillingStatus(evt BillingStatusEvent) {
	s, ok := a.Sessions.Current()
	if !ok || s.ID != evt.SessionID {
		return
	}

	status := billingstatus.Normalize(evt.Status)
	a.History.SetConfirmedBilling(status.Code())
	if status.Code() != billingstatus.Statuses.Paid.Code() {
		return
	}

	a.logger.Info("session paid", "session_id", s.ID, "grace", a.cfg.PaidGrace)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.paidTimer != nil {
		return
	}
	a.paidTimer = time.AfterFunc(a.cfg.PaidGrace, func() {
		a.mu.Lock()
		a.paidTimer = nil
		a.mu.Unlock()
		if cur, ok := a.Sessions.Current(); ok && cur.ID == s.ID {
			a.EndSession()
		}
	})
}

func durationOr(cfg *apt.Config, key string, def time.Duration) time.Duration {
	raw, _ := cfg.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func intOr(cfg *apt.Config, key string, def int) int {
	raw, _ := cfg.GetString(key)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
