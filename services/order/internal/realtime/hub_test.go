package realtime

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/momomagic/momo/pkg/event"
	"github.com/momomagic/momo/services/order/internal/auth"
)

const testSecret = "test-secret-0123456789"

func startHub(t *testing.T, verifier auth.TokenVerifier) (*Hub, string) {
	t.Helper()
	hub := NewHub(verifier, nil)
	srv := httptest.NewServer(httpHandler(hub))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) event.PushMessage {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg event.PushMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func joinRoom(t *testing.T, ws *websocket.Conn, room, token string) event.PushMessage {
	t.Helper()
	if err := ws.WriteJSON(event.PushMessage{Type: event.PushJoin, Room: room, Token: token}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	return readFrame(t, ws)
}

func TestHubJoinAndBroadcast(t *testing.T) {
	hub, url := startHub(t, nil)
	table := dial(t, url)
	other := dial(t, url)

	if got := joinRoom(t, table, "table_3", ""); got.Type != event.PushJoined || got.Room != "table_3" {
		t.Fatalf("join reply = %+v, want joined table_3", got)
	}
	if got := joinRoom(t, other, "table_9", ""); got.Type != event.PushJoined {
		t.Fatalf("join reply = %+v", got)
	}

	delivered := hub.Broadcast(event.TableRoom(3), event.PushMessage{
		Type: event.PushOrderStatusChanged, OrderID: "o1", SessionID: "s1", TableNumber: 3, Status: "SERVED",
	})
	if delivered != 1 {
		t.Errorf("Broadcast() delivered = %d, want 1", delivered)
	}

	got := readFrame(t, table)
	if got.Type != event.PushOrderStatusChanged || got.OrderID != "o1" || got.Status != "SERVED" || got.Room != "table_3" {
		t.Errorf("pushed frame = %+v", got)
	}
}

func TestHubRejectsBadJoins(t *testing.T) {
	issuer, _ := auth.NewTokenIssuer(testSecret, time.Hour)
	customerToken, _, _ := issuer.Issue("c1", "Asha", auth.RoleCustomer)
	staffToken, _, _ := issuer.Issue("admin", "admin", auth.RoleStaff)

	tests := []struct {
		name     string
		room     string
		token    string
		wantType string
	}{
		{name: "unknownRoom", room: "kitchen", wantType: event.PushError},
		{name: "zeroTable", room: "table_0", wantType: event.PushError},
		{name: "adminWithoutToken", room: "admin", wantType: event.PushError},
		{name: "adminWithCustomerToken", room: "admin", token: customerToken, wantType: event.PushError},
		{name: "adminWithStaffToken", room: "admin", token: staffToken, wantType: event.PushJoined},
		{name: "tableNeedsNoToken", room: "table_12", wantType: event.PushJoined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, url := startHub(t, issuer)
			ws := dial(t, url)
			if got := joinRoom(t, ws, tt.room, tt.token); got.Type != tt.wantType {
				t.Errorf("join reply = %+v, want type %q", got, tt.wantType)
			}
		})
	}
}

func TestHubLeaveAndDisconnect(t *testing.T) {
	hub, url := startHub(t, nil)
	ws := dial(t, url)
	joinRoom(t, ws, "table_5", "")
	joinRoom(t, ws, "admin", "")

	if hub.RoomSize("table_5") != 1 || hub.RoomSize("admin") != 1 {
		t.Fatalf("room sizes = %d/%d, want 1/1", hub.RoomSize("table_5"), hub.RoomSize("admin"))
	}

	_ = ws.WriteJSON(event.PushMessage{Type: event.PushLeave, Room: "table_5"})
	waitFor(t, func() bool { return hub.RoomSize("table_5") == 0 })

	_ = ws.Close()
	waitFor(t, func() bool { return hub.RoomSize("admin") == 0 })
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(nil, nil)
	c := &client{id: "slow", send: make(chan []byte, 1), rooms: map[string]struct{}{}}
	hub.conns[c] = struct{}{}
	if err := hub.join(c, "table_1", ""); err != nil {
		t.Fatalf("join() error = %v", err)
	}

	msg := event.PushMessage{Type: event.PushBillingStatusChanged, SessionID: "s1", Status: "paid"}
	if got := hub.Broadcast("table_1", msg); got != 1 {
		t.Errorf("first Broadcast() = %d, want 1", got)
	}
	if got := hub.Broadcast("table_1", msg); got != 0 {
		t.Errorf("second Broadcast() = %d, want 0 when queue is full", got)
	}
}

func TestValidRoom(t *testing.T) {
	tests := []struct {
		room string
		want bool
	}{
		{"admin", true},
		{"table_1", true},
		{"table_42", true},
		{"table_", false},
		{"table_-1", false},
		{"table_x", false},
		{"Admin", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := validRoom(tt.room); got != tt.want {
			t.Errorf("validRoom(%q) = %v, want %v", tt.room, got, tt.want)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func httpHandler(hub *Hub) *chi.Mux {
	r := chi.NewRouter()
	hub.RegisterRoutes(r)
	return r
}
