// Package gateway bridges the broker to websocket dashboards. It only
// broadcasts what it consumes from the exchange, so every instance behind
// a load balancer delivers the same events.
package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// client is one websocket connection pinned to a restaurant room after
// its joinRestaurant frame.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex
	room string
}

func (c *client) setRoom(room string) {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
}

func (c *client) inRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room == room
}

// writePump owns the connection's write side. The read side lives in the
// handler; gorilla allows one concurrent writer only.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub tracks connected clients and fans broker events out to rooms.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *logrus.Entry
}

func NewHub(log *logrus.Entry) *Hub {
	return &Hub{clients: map[*client]struct{}{}, log: log}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast delivers a frame to every client joined to room. Slow clients
// are dropped rather than blocking the fan-out.
func (h *Hub) Broadcast(room string, frame []byte) {
	h.mu.RLock()
	var stale []*client
	for c := range h.clients {
		if !c.inRoom(room) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.log.WithField("room", room).Warn("dropping slow socket client")
		h.unregister(c)
		c.conn.Close()
	}
}

// Size reports connected clients, used by the health endpoint.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
