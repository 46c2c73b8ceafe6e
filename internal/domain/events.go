package domain

import "encoding/json"

// Event names broadcast to dashboard rooms. These match the socket frames
// the dashboards subscribe to.
const (
	EventOrderUpdated    = "orderUpdated"
	EventMenuUpdated     = "menuUpdated"
	EventCategoryUpdated = "categoryUpdated"
	EventCallWaiter      = "callWaiter"
	EventRequestBill     = "requestBill"
)

// Envelope is the wire form on the event exchange and the websocket.
// Restaurant is the tenant slug used as the room key.
type Envelope struct {
	Event      string          `json:"event"`
	Restaurant string          `json:"restaurant"`
	Data       json.RawMessage `json:"data"`
}

// OrderEventPayload is the Data of an orderUpdated envelope.
type OrderEventPayload struct {
	Action string `json:"action"` // "create" | "update"
	Data   Order  `json:"data"`
}

// ResourceEventPayload is the Data of menuUpdated / categoryUpdated.
type ResourceEventPayload struct {
	Action string `json:"action"` // "create" | "update" | "delete"
	Data   any    `json:"data"`
}

// TableEventPayload is the Data of callWaiter / requestBill.
type TableEventPayload struct {
	TableNumber string `json:"tableNumber"`
}
