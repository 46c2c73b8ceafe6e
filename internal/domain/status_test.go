package domain

import (
	"testing"
	"time"
)

func TestOrderStatusNext(t *testing.T) {
	tests := []struct {
		from OrderStatus
		want OrderStatus
		ok   bool
	}{
		{OrderPending, OrderPreparing, true},
		{OrderPreparing, OrderReady, true},
		{OrderReady, "", false},
		{OrderCompleted, "", false},
		{OrderCancelled, "", false},
	}
	for _, tt := range tests {
		got, ok := tt.from.Next()
		if ok != tt.ok || got != tt.want {
			t.Errorf("%s.Next() = (%q, %v), want (%q, %v)", tt.from, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOrderStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"forward pending", OrderPending, OrderPreparing, true},
		{"forward preparing", OrderPreparing, OrderReady, true},
		{"reverse rejected", OrderReady, OrderPreparing, false},
		{"skip rejected", OrderPending, OrderReady, false},
		{"settle from ready", OrderReady, OrderCompleted, true},
		{"settle from pending", OrderPending, OrderCompleted, true},
		{"cancel active", OrderPreparing, OrderCancelled, true},
		{"cancel completed rejected", OrderCompleted, OrderCancelled, false},
		{"self loop rejected", OrderPending, OrderPending, false},
		{"reopen rejected", OrderCompleted, OrderPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestItemStatusChain(t *testing.T) {
	order := []ItemStatus{ItemPending, ItemPreparing, ItemReady, ItemServed, ItemCompleted}
	for i := 0; i < len(order)-1; i++ {
		if !order[i].CanTransition(order[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", order[i], order[i+1])
		}
		if order[i+1].CanTransition(order[i]) {
			t.Errorf("expected reverse %s -> %s to be rejected", order[i+1], order[i])
		}
	}
	if _, ok := ItemCompleted.Next(); ok {
		t.Error("completed must be terminal for items")
	}
	if ItemPending.CanTransition(ItemReady) {
		t.Error("skipping preparing must be rejected")
	}
}

func TestRounds(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mk := func(name string, offset time.Duration) OrderItem {
		return OrderItem{Name: name, Quantity: 1, AddedAt: base.Add(offset)}
	}
	items := []OrderItem{
		mk("soup", 0),
		mk("bread", 4*time.Second), // same round, within window of round start
		mk("curry", 40*time.Second),
		mk("rice", 45*time.Second),
		mk("lassi", 2*time.Minute),
	}
	rounds := Rounds(items, 10*time.Second)
	if len(rounds) != 3 {
		t.Fatalf("got %d rounds, want 3", len(rounds))
	}
	if len(rounds[0].Items) != 2 || len(rounds[1].Items) != 2 || len(rounds[2].Items) != 1 {
		t.Errorf("round sizes = %d,%d,%d, want 2,2,1",
			len(rounds[0].Items), len(rounds[1].Items), len(rounds[2].Items))
	}
	if !rounds[1].StartedAt.Equal(base.Add(40 * time.Second)) {
		t.Errorf("second round starts at %v", rounds[1].StartedAt)
	}
	if got := Rounds(nil, 10*time.Second); got != nil {
		t.Errorf("empty items should produce no rounds, got %v", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Green Leaf", "green_leaf"},
		{"  Cafe 42  ", "cafe_42"},
		{"O'Neill's", "o_neill_s"},
		{"already_slug", "already_slug"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
