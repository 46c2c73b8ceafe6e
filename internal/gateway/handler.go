package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"eatgreet/internal/domain"
	"eatgreet/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser dashboards connect cross-origin; auth is the JWT on the
	// REST side, the socket carries no privileged data beyond the room.
	CheckOrigin: func(*http.Request) bool { return true },
}

// clientFrame is what dashboards and table pages send upstream.
type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	Restaurant string `json:"restaurant"`
}

// Handler upgrades GET /ws and runs the read loop for each connection.
type Handler struct {
	hub *Hub
	pub events.PublisherInterface
	log *logrus.Entry
}

func NewHandler(hub *Hub, pub events.PublisherInterface, log *logrus.Entry) *Handler {
	return &Handler{hub: hub, pub: pub, log: log}
}

func (h *Handler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.hub.register(cl)
	go cl.writePump()
	h.readPump(cl)
}

func (h *Handler) readPump(cl *client) {
	defer func() {
		h.hub.unregister(cl)
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(4 << 10)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Debug("socket closed")
			}
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.log.WithError(err).Debug("malformed socket frame")
			continue
		}
		h.handleFrame(cl, frame)
	}
}

// handleFrame routes upstream frames. Table calls go to the broker, never
// straight to the hub, so every gateway instance relays them.
func (h *Handler) handleFrame(cl *client, frame clientFrame) {
	switch frame.Event {
	case "joinRestaurant":
		// Data is the restaurant name, either bare or wrapped.
		var name string
		if json.Unmarshal(frame.Data, &name) != nil {
			var p joinPayload
			if json.Unmarshal(frame.Data, &p) == nil {
				name = p.Restaurant
			}
		}
		if name == "" {
			h.log.Debug("joinRestaurant without restaurant")
			return
		}
		cl.setRoom(domain.Slugify(name))
	case domain.EventCallWaiter, domain.EventRequestBill:
		cl.mu.Lock()
		room := cl.room
		cl.mu.Unlock()
		if room == "" {
			return
		}
		var p domain.TableEventPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			h.log.WithError(err).Debug("malformed table frame")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.pub.Table(ctx, room, frame.Event, p.TableNumber); err != nil {
			h.log.WithError(err).WithField("event", frame.Event).Warn("broadcast_failed")
		}
	default:
		h.log.WithField("event", frame.Event).Debug("unknown socket frame")
	}
}
