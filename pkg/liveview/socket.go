// Package liveview keeps client views converging with the server through
// two always-on paths: websocket pushes for latency and interval polls
// for consistency. Either path alone is enough; together they cover
// broker gaps and dropped connections.
package liveview

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event is one server push delivered to handlers.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler receives events for the subscribed restaurant.
type Handler func(Event)

// SocketOptions tune the reconnect behavior.
type SocketOptions struct {
	// ReconnectDelay is the initial wait after a drop; it grows once to
	// ReconnectMax and stays there.
	ReconnectDelay time.Duration
	ReconnectMax   time.Duration
}

func (o *SocketOptions) defaults() {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 5 * time.Second
	}
	if o.ReconnectMax <= 0 {
		o.ReconnectMax = 10 * time.Second
	}
}

// Socket maintains one websocket to the gateway, pinned to a restaurant
// room. It reconnects forever until the context ends.
type Socket struct {
	url        string
	restaurant string
	opts       SocketOptions
	log        *logrus.Entry

	mu       sync.RWMutex
	handlers []Handler
	conn     *websocket.Conn

	// writeMu serializes writes; gorilla permits one writer at a time.
	writeMu sync.Mutex
}

func NewSocket(url, restaurant string, opts SocketOptions, log *logrus.Entry) *Socket {
	opts.defaults()
	return &Socket{url: url, restaurant: restaurant, opts: opts, log: log}
}

// OnEvent registers a handler. Handlers run on the read goroutine and
// must not block.
func (s *Socket) OnEvent(h Handler) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
}

// Run connects and keeps the connection alive until ctx is done. The
// join frame is re-sent on every connect because the server keeps no
// room state across connections.
func (s *Socket) Run(ctx context.Context) {
	delay := s.opts.ReconnectDelay
	for {
		if err := s.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Debug("socket dropped")
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay < s.opts.ReconnectMax {
			delay = s.opts.ReconnectMax
		}
	}
}

func (s *Socket) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		conn.Close()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	if err := s.send(conn, "joinRestaurant", s.restaurant); err != nil {
		return err
	}

	// Close the connection when ctx ends so the read below unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		s.mu.RLock()
		handlers := s.handlers
		s.mu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}
	}
}

// CallWaiter asks the gateway to relay a waiter call for the table.
func (s *Socket) CallWaiter(tableNumber string) error {
	return s.emit("callWaiter", tableNumber)
}

// RequestBill asks the gateway to relay a bill request for the table.
func (s *Socket) RequestBill(tableNumber string) error {
	return s.emit("requestBill", tableNumber)
}

func (s *Socket) emit(event, tableNumber string) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return s.send(conn, event, map[string]string{"tableNumber": tableNumber})
}

func (s *Socket) send(conn *websocket.Conn, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(Event{Event: event, Data: payload})
}
