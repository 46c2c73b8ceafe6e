package domain

// OrderStatus is the aggregate status track, advanced by admin actions.
// It moves strictly forward: pending -> preparing -> ready. "completed" is
// only reachable through an explicit settle, "cancelled" from any active
// status. The per-item track below is independent of this one.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Next returns the status the "advance" action moves to. ready is terminal
// for the advance chain.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderPending:
		return OrderPreparing, true
	case OrderPreparing:
		return OrderReady, true
	default:
		return "", false
	}
}

// CanTransition reports whether a direct transition from s to to is legal.
// Skipping and reversing are both rejected.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s == to {
		return false
	}
	switch to {
	case OrderPreparing:
		return s == OrderPending
	case OrderReady:
		return s == OrderPreparing
	case OrderCompleted, OrderCancelled:
		return s.Active()
	default:
		return false
	}
}

// Active reports whether the order still occupies its table.
func (s OrderStatus) Active() bool {
	switch s {
	case OrderPending, OrderPreparing, OrderReady:
		return true
	}
	return false
}

// ActiveOrderStatuses is the set used by occupancy and kitchen queries.
var ActiveOrderStatuses = []OrderStatus{OrderPending, OrderPreparing, OrderReady}

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// ItemStatus is the per-item kitchen track. Items advance independently so
// one table can have several rounds in different stages.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
	ItemCompleted ItemStatus = "completed"
)

var itemChain = []ItemStatus{ItemPending, ItemPreparing, ItemReady, ItemServed, ItemCompleted}

func (s ItemStatus) Next() (ItemStatus, bool) {
	for i, st := range itemChain {
		if st == s && i+1 < len(itemChain) {
			return itemChain[i+1], true
		}
	}
	return "", false
}

func (s ItemStatus) CanTransition(to ItemStatus) bool {
	next, ok := s.Next()
	return ok && next == to
}

func ValidItemStatus(s ItemStatus) bool {
	for _, st := range itemChain {
		if st == s {
			return true
		}
	}
	return false
}

// PaymentStatus tracks billing separately from the kitchen floor.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}
