package liveview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"eatgreet/internal/config"
)

func quietLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

// flakyGateway accepts websocket connections, records each join frame and
// kills the first connection right after joining to force a reconnect.
type flakyGateway struct {
	upgrader websocket.Upgrader
	joins    chan string
	conns    atomic.Int32
}

func (g *flakyGateway) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	n := g.conns.Add(1)

	var frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&frame); err != nil || frame.Event != "joinRestaurant" {
		return
	}
	var name string
	json.Unmarshal(frame.Data, &name)
	g.joins <- name

	if n == 1 {
		return // drop the first connection immediately
	}

	conn.WriteJSON(Event{Event: "orderUpdated", Data: json.RawMessage(`{}`)})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestSocketReconnectsAndRejoins(t *testing.T) {
	gw := &flakyGateway{joins: make(chan string, 4)}
	srv := httptest.NewServer(http.HandlerFunc(gw.handler))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	s := NewSocket(url, "spice_garden", SocketOptions{
		ReconnectDelay: 20 * time.Millisecond,
		ReconnectMax:   40 * time.Millisecond,
	}, quietLog())

	events := make(chan Event, 4)
	s.OnEvent(func(ev Event) { events <- ev })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go s.Run(ctx)

	// The join frame must arrive on both the first and second connection.
	for i := 0; i < 2; i++ {
		select {
		case got := <-gw.joins:
			if got != "spice_garden" {
				t.Errorf("join %d = %q, want spice_garden", i, got)
			}
		case <-ctx.Done():
			t.Fatalf("no join frame on connection %d", i+1)
		}
	}

	select {
	case ev := <-events:
		if ev.Event != "orderUpdated" {
			t.Errorf("event = %q, want orderUpdated", ev.Event)
		}
	case <-ctx.Done():
		t.Fatal("no event after reconnect")
	}
}

func TestCacheRevalidatesOnInterval(t *testing.T) {
	var fetches atomic.Int32
	c := NewCache(20*time.Millisecond, quietLog())

	updates := make(chan any, 8)
	c.Register("spice_garden", "menu", func(context.Context) (any, error) {
		fetches.Add(1)
		return "menu-v" + time.Now().String(), nil
	}, func(data any) { updates <- data })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go c.Run(ctx)

	select {
	case <-updates:
	case <-ctx.Done():
		t.Fatal("interval revalidation never fired")
	}
	if _, ok := c.Get("spice_garden", "menu"); !ok {
		t.Error("cache has no data after revalidation")
	}
	if _, ok := c.Get("spice_garden", "orders"); ok {
		t.Error("unregistered resource reported data")
	}
}

func TestCacheRevalidatesOnEvent(t *testing.T) {
	c := NewCache(time.Hour, quietLog()) // interval path effectively off

	updates := make(chan any, 2)
	c.Register("spice_garden", "menu", func(context.Context) (any, error) {
		return "fresh", nil
	}, func(data any) { updates <- data })

	s := &Socket{}
	c.Bind("spice_garden", s)
	for _, h := range s.handlers {
		h(Event{Event: "menuUpdated", Data: json.RawMessage(`{}`)})
	}

	select {
	case data := <-updates:
		if data != "fresh" {
			t.Errorf("data = %v, want fresh", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event revalidation never fired")
	}
}

func TestCacheKeepsLastGoodDataOnFetchError(t *testing.T) {
	c := NewCache(time.Hour, quietLog())

	healthy := true
	c.Register("spice_garden", "orders", func(context.Context) (any, error) {
		if !healthy {
			return nil, context.DeadlineExceeded
		}
		return "good", nil
	}, nil)

	c.revalidate(context.Background(), "spice_garden", "orders")
	healthy = false
	c.revalidate(context.Background(), "spice_garden", "orders")

	data, ok := c.Get("spice_garden", "orders")
	if !ok || data != "good" {
		t.Errorf("data = %v ok = %v, want last good value", data, ok)
	}
}

func TestNewTakesSyncSettings(t *testing.T) {
	sync := config.SyncConfig{
		PollInterval:   42 * time.Second,
		ReconnectDelay: time.Second,
		ReconnectMax:   3 * time.Second,
	}
	s, c := New("ws://example/ws", "Spice Garden", sync, quietLog())

	if s.opts.ReconnectDelay != time.Second || s.opts.ReconnectMax != 3*time.Second {
		t.Errorf("socket opts = %+v, want the configured delays", s.opts)
	}
	if c.interval != 42*time.Second {
		t.Errorf("cache interval = %v, want 42s", c.interval)
	}
	// New binds the cache to the socket's push events.
	if len(s.handlers) != 1 {
		t.Errorf("handlers = %d, want the cache binding", len(s.handlers))
	}
}
