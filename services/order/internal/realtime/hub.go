package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/momomagic/momo/pkg/event"
	"github.com/momomagic/momo/services/order/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	DefaultSendBuffer = 64
)

var (
	ErrUnknownRoom  = errors.New("unknown room")
	ErrStaffOnly    = errors.New("admin room requires a staff token")
	ErrBadFrameType = errors.New("unsupported message type")
)

// Hub keeps websocket connections grouped by room and fans push messages out to them.
type Hub struct {
	verifier   auth.TokenVerifier
	logger     apt.Logger
	upgrader   websocket.Upgrader
	sendBuffer int

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	conns map[*client]struct{}
}

type client struct {
	id    string
	ws    *websocket.Conn
	send  chan []byte
	rooms map[string]struct{}
	once  sync.Once
}

// NewHub builds a hub. A nil verifier leaves the admin room open.
func NewHub(verifier auth.TokenVerifier, logger apt.Logger) *Hub {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Hub{
		verifier:   verifier,
		logger:     logger.With("component", "RealtimeHub"),
		sendBuffer: DefaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Diners connect from the storefront origin and from the CLI, which sends none.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*client]struct{}),
		conns: make(map[*client]struct{}),
	}
}

func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.ServeWS)
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:    uuid.NewString(),
		ws:    ws,
		send:  make(chan []byte, h.sendBuffer),
		rooms: make(map[string]struct{}),
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("websocket connected", "client_id", c.id, "total_clients", total)

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast queues msg for every connection in room and returns how many accepted it.
// Connections with a full queue miss the message.
func (h *Hub) Broadcast(room string, msg event.PushMessage) int {
	msg.Room = room
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("cannot encode push message", "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
			delivered++
		default:
			h.logger.Info("client queue full, dropping message", "client_id", c.id, "room", room, "type", msg.Type)
		}
	}
	return delivered
}

// RoomSize reports the number of connections joined to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Stop closes every open connection.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	conns := make([]*client, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = c.ws.Close()
	}
	return nil
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg event.PushMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "client_id", c.id, "error", err)
			}
			return
		}
		h.handleFrame(c, msg)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleFrame(c *client, msg event.PushMessage) {
	var err error
	switch msg.Type {
	case event.PushJoin:
		err = h.join(c, msg.Room, msg.Token)
		if err == nil {
			h.reply(c, event.PushMessage{Type: event.PushJoined, Room: msg.Room})
			return
		}
	case event.PushLeave:
		h.leave(c, msg.Room)
		return
	default:
		err = ErrBadFrameType
	}

	h.logger.Debug("rejected client frame", "client_id", c.id, "type", msg.Type, "room", msg.Room, "error", err)
	h.reply(c, event.PushMessage{Type: event.PushError, Room: msg.Room, Message: err.Error()})
}

func (h *Hub) join(c *client, room, token string) error {
	if !validRoom(room) {
		return ErrUnknownRoom
	}
	if room == event.AdminRoom && h.verifier != nil {
		claims, err := h.verifier.Verify(token)
		if err != nil || claims.Role != auth.RoleStaff {
			return ErrStaffOnly
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return nil
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
	return nil
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.conns, c)
	total := len(h.conns)
	h.mu.Unlock()

	c.once.Do(func() { close(c.send) })
	h.logger.Info("websocket disconnected", "client_id", c.id, "total_clients", total)
}

// reply queues a direct answer to one connection.
func (h *Hub) reply(c *client, msg event.PushMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func validRoom(room string) bool {
	if room == event.AdminRoom {
		return true
	}
	n, ok := strings.CutPrefix(room, "table_")
	if !ok {
		return false
	}
	table, err := strconv.Atoi(n)
	return err == nil && table > 0
}
