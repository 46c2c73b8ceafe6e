package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"eatgreet/internal/domain"
)

type recordingPublisher struct {
	calls chan string
}

func (p *recordingPublisher) OrderUpdated(ctx context.Context, slug, action string, order domain.Order) error {
	return nil
}

func (p *recordingPublisher) Resource(ctx context.Context, slug, event, action string, data any) error {
	return nil
}

func (p *recordingPublisher) Table(ctx context.Context, slug, event, tableNumber string) error {
	p.calls <- slug + "/" + event + "/" + tableNumber
	return nil
}

func quietLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func testGateway(t *testing.T) (*Hub, *recordingPublisher, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(quietLog())
	pub := &recordingPublisher{calls: make(chan string, 8)}
	h := NewHandler(hub, pub, quietLog())

	engine := gin.New()
	engine.GET("/ws", h.Serve)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return hub, pub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func join(t *testing.T, conn *websocket.Conn, restaurant string) {
	t.Helper()
	frame := map[string]any{"event": "joinRestaurant", "data": map[string]string{"restaurant": restaurant}}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("join: %v", err)
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Size() < n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.Size(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesOnlyJoinedRoom(t *testing.T) {
	hub, _, url := testGateway(t)

	spice := dial(t, url)
	join(t, spice, "Spice Garden")
	other := dial(t, url)
	join(t, other, "Other Place")
	waitForClients(t, hub, 2)
	// Joins are handled on the read goroutine; give them a beat to land.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast("spice_garden", []byte(`{"event":"menuUpdated","data":{}}`))

	spice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Event string `json:"event"`
	}
	if err := spice.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Event != "menuUpdated" {
		t.Errorf("event = %q, want menuUpdated", got.Event)
	}

	other.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var stray json.RawMessage
	if err := other.ReadJSON(&stray); err == nil {
		t.Errorf("unjoined room received %s", stray)
	}
}

func TestTableCallsGoToBroker(t *testing.T) {
	hub, pub, url := testGateway(t)

	conn := dial(t, url)
	join(t, conn, "Spice Garden")
	waitForClients(t, hub, 1)
	time.Sleep(50 * time.Millisecond)

	frame := map[string]any{"event": "callWaiter", "data": map[string]string{"tableNumber": "5"}}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("callWaiter: %v", err)
	}

	select {
	case got := <-pub.calls:
		if got != "spice_garden/callWaiter/5" {
			t.Errorf("published %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callWaiter never reached the broker")
	}

	// The gateway must not echo the call straight back; it only relays
	// what it consumes from the exchange.
	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var echo json.RawMessage
	if err := conn.ReadJSON(&echo); err == nil {
		t.Errorf("gateway echoed %s", echo)
	}
}

func TestMalformedFramesAreIgnored(t *testing.T) {
	hub, _, url := testGateway(t)

	conn := dial(t, url)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	join(t, conn, "Spice Garden")
	waitForClients(t, hub, 1)
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast("spice_garden", []byte(`{"event":"orderUpdated","data":{}}`))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Event string `json:"event"`
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("connection should survive malformed input: %v", err)
	}
	if got.Event != "orderUpdated" {
		t.Errorf("event = %q, want orderUpdated", got.Event)
	}
}

func TestUnregisterOnDisconnect(t *testing.T) {
	hub, _, url := testGateway(t)

	conn := dial(t, url)
	waitForClients(t, hub, 1)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d after disconnect, want 0", hub.Size())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
