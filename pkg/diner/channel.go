package diner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/gorilla/websocket"

	"github.com/momomagic/momo/pkg/event"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 2 * time.Second

	channelWriteWait = 10 * time.Second
	channelReadWait  = 90 * time.Second
)

// ChannelState is the lifecycle of the push connection.
type ChannelState int

const (
	StateDisconnected ChannelState = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s ChannelState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "DISCONNECTED"
	}
}

var ErrChannelClosed = errors.New("channel closed")

// OrderStatusEvent sets the status of one order.
type OrderStatusEvent struct {
	OrderID     string
	SessionID   string
	TableNumber int
	Status      string
}

// BillingStatusEvent sets the billing status of one session.
type BillingStatusEvent struct {
	SessionID   string
	TableNumber int
	Status      string
}

type ChannelConfig struct {
	URL         string
	MaxAttempts int
	RetryDelay  time.Duration
	// Token is sent with every join, needed for the admin room.
	Token string
}

// Channel is the auto reconnecting websocket to the order service. Joined
// rooms are re-joined after every reconnect.
type Channel struct {
	cfg    ChannelConfig
	dialer *websocket.Dialer
	logger apt.Logger

	mu            sync.Mutex
	state         ChannelState
	conn          *websocket.Conn
	rooms         []string
	orderHandlers []func(OrderStatusEvent)
	billHandlers  []func(BillingStatusEvent)
	stateHandlers []func(ChannelState)
	started       bool
	closing       bool
	stop          chan struct{}
	done          chan struct{}

	writeMu sync.Mutex
}

func NewChannel(cfg ChannelConfig, logger apt.Logger) *Channel {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Channel{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		logger: logger.With("component", "Channel"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (c *Channel) OnOrderStatus(fn func(OrderStatusEvent)) {
	c.mu.Lock()
	c.orderHandlers = append(c.orderHandlers, fn)
	c.mu.Unlock()
}

func (c *Channel) OnBillingStatus(fn func(BillingStatusEvent)) {
	c.mu.Lock()
	c.billHandlers = append(c.billHandlers, fn)
	c.mu.Unlock()
}

func (c *Channel) OnStateChange(fn func(ChannelState)) {
	c.mu.Lock()
	c.stateHandlers = append(c.stateHandlers, fn)
	c.mu.Unlock()
}

func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Join adds room to the joined set and joins it right away when connected.
func (c *Channel) Join(room string) {
	c.mu.Lock()
	for _, r := range c.rooms {
		if r == room {
			c.mu.Unlock()
			return
		}
	}
	c.rooms = append(c.rooms, room)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		if err := c.sendJoin(conn, room); err != nil {
			c.logger.Info("join failed, will retry on reconnect", "room", room, "error", err)
		}
	}
}

// Rooms lists the joined rooms.
func (c *Channel) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rooms...)
}

// Start connects in the background. It is a no-op after the first call.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return ErrChannelClosed
	}
	if c.started {
		return nil
	}
	c.started = true
	go c.run(ctx)
	return nil
}

// Close tears the connection down for good.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	started := c.started
	conn := c.conn
	close(c.stop)
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = conn.Close()
	}
	if started {
		<-c.done
	}
	c.setState(StateClosed)
	return nil
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	failures := 0
	for {
		if c.stopped(ctx) {
			return
		}

		c.setState(StateConnecting)
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			failures++
			c.setState(StateDisconnected)
			c.logger.Info("websocket connect failed", "attempt", failures, "max_attempts", c.cfg.MaxAttempts, "error", err)
			if failures >= c.cfg.MaxAttempts {
				c.logger.Info("giving up on websocket reconnects")
				return
			}
			if !c.wait(ctx) {
				return
			}
			continue
		}

		failures = 0
		if !c.attach(conn) {
			_ = conn.Close()
			return
		}
		c.setState(StateConnected)
		c.logger.Info("websocket connected", "url", c.cfg.URL)

		for _, room := range c.Rooms() {
			if err := c.sendJoin(conn, room); err != nil {
				c.logger.Info("join failed", "room", room, "error", err)
			}
		}

		c.readLoop(conn)

		c.detach()
		if c.stopped(ctx) {
			return
		}
		c.setState(StateDisconnected)
		c.logger.Info("websocket dropped, reconnecting", "delay", c.cfg.RetryDelay)
		if !c.wait(ctx) {
			return
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(channelReadWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(channelReadWait))
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(channelWriteWait))
	})

	for {
		var msg event.PushMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				c.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(channelReadWait))
		c.dispatch(msg)
	}
}

func (c *Channel) dispatch(msg event.PushMessage) {
	switch msg.Type {
	case event.PushOrderStatusChanged:
		c.mu.Lock()
		handlers := append(([]func(OrderStatusEvent))(nil), c.orderHandlers...)
		c.mu.Unlock()
		evt := OrderStatusEvent{OrderID: msg.OrderID, SessionID: msg.SessionID, TableNumber: msg.TableNumber, Status: msg.Status}
		for _, h := range handlers {
			h(evt)
		}
	case event.PushBillingStatusChanged:
		c.mu.Lock()
		handlers := append(([]func(BillingStatusEvent))(nil), c.billHandlers...)
		c.mu.Unlock()
		evt := BillingStatusEvent{SessionID: msg.SessionID, TableNumber: msg.TableNumber, Status: msg.Status}
		for _, h := range handlers {
			h(evt)
		}
	case event.PushJoined:
		c.logger.Debug("room joined", "room", msg.Room)
	case event.PushError:
		c.logger.Info("server rejected frame", "room", msg.Room, "message", msg.Message)
	}
}

func (c *Channel) sendJoin(conn *websocket.Conn, room string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(channelWriteWait))
	return conn.WriteJSON(event.PushMessage{Type: event.PushJoin, Room: room, Token: c.cfg.Token})
}

func (c *Channel) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.stop:
		return false
	default:
	}
	c.conn = conn
	return true
}

func (c *Channel) detach() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Channel) setState(s ChannelState) {
	c.mu.Lock()
	if c.state == s || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = s
	handlers := append(([]func(ChannelState))(nil), c.stateHandlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(s)
	}
}

func (c *Channel) stopped(ctx context.Context) bool {
	select {
	case <-c.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (c *Channel) wait(ctx context.Context) bool {
	t := time.NewTimer(c.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.stop:
		return false
	case <-ctx.Done():
		return false
	}
}
