package domain

// CreateOrderItem is one cart line on checkout.
type CreateOrderItem struct {
	MenuItemID string  `json:"menuItem"`
	Name       string  `json:"name" binding:"required"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

// CreateOrderRequest is the checkout payload. Takeaway must be set
// explicitly when no table number is given.
type CreateOrderRequest struct {
	CustomerInfo CustomerInfo      `json:"customerInfo"`
	TableNumber  string            `json:"tableNumber"`
	Takeaway     bool              `json:"takeaway"`
	Items        []CreateOrderItem `json:"items"`
	Instruction  string            `json:"instruction"`
}

// UpdateOrderStatusRequest mutates the aggregate and/or billing track.
// Both fields are optional; empty means "leave unchanged".
type UpdateOrderStatusRequest struct {
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

type UpdateItemStatusRequest struct {
	Status ItemStatus `json:"status" binding:"required"`
}

// UpdateRoundStatusRequest advances every item of one round in a single
// transaction. RoundStartedAt identifies the round by its bucket time.
type UpdateRoundStatusRequest struct {
	RoundStartedAt string     `json:"roundStartedAt" binding:"required"` // RFC3339
	Status         ItemStatus `json:"status" binding:"required"`
}

// TableStatusResponse answers the occupancy check.
type TableStatusResponse struct {
	Status   string        `json:"status"` // "free" | "occupied"
	Customer *CustomerInfo `json:"customer,omitempty"`
	OrderID  string        `json:"orderId,omitempty"`
}
