package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleKitchen    Role = "kitchen"
	RoleCustomer   Role = "customer"
)

type Restaurant struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	TotalTables int       `json:"totalTables"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	RestaurantID   uuid.UUID `json:"restaurantId,omitempty"`
	RestaurantName string    `json:"restaurantName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Category struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurantId"`
	Name         string    `json:"name"`
	SortOrder    int       `json:"sortOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}

type MenuItem struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurantId"`
	CategoryID   uuid.UUID `json:"categoryId,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	ImageURL     string    `json:"imageUrl"`
	IsAvailable  bool      `json:"isAvailable"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CustomerInfo is a snapshot stored on the order. Phone is the
// re-identification key for the "is this your table" check.
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	ID    string `json:"id,omitempty"`
}

type OrderItem struct {
	ID         uuid.UUID  `json:"id"`
	MenuItemID uuid.UUID  `json:"menuItem,omitempty"`
	Name       string     `json:"name"`
	Price      float64    `json:"price"`
	Quantity   int        `json:"quantity"`
	Status     ItemStatus `json:"status"`
	AddedAt    time.Time  `json:"addedAt"`
}

type Order struct {
	ID             uuid.UUID     `json:"id"`
	RestaurantID   uuid.UUID     `json:"restaurantId"`
	RestaurantName string        `json:"restaurantName,omitempty"`
	TableNumber    *string       `json:"tableNumber,omitempty"` // nil means takeaway
	CustomerInfo   CustomerInfo  `json:"customerInfo"`
	Items          []OrderItem   `json:"items"`
	Status         OrderStatus   `json:"status"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	Instruction    string        `json:"instruction,omitempty"`
	TotalAmount    float64       `json:"totalAmount"`
	DailySequence  int           `json:"dailySequence,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Takeaway reports whether the order has no table attached.
func (o *Order) Takeaway() bool {
	return o.TableNumber == nil || *o.TableNumber == ""
}

// Round is a group of items added within one window, shown as one kitchen
// card. Items keep their own addedAt so prior rounds are never mutated.
type Round struct {
	StartedAt time.Time   `json:"startedAt"`
	Items     []OrderItem `json:"items"`
}

// Rounds buckets items by addedAt: an item opens a new round when it was
// added more than window after the round started. Items are assumed sorted
// by addedAt, which is how the store returns them.
func Rounds(items []OrderItem, window time.Duration) []Round {
	var out []Round
	for _, it := range items {
		n := len(out)
		if n == 0 || it.AddedAt.Sub(out[n-1].StartedAt) > window {
			out = append(out, Round{StartedAt: it.AddedAt})
			n++
		}
		out[n-1].Items = append(out[n-1].Items, it)
	}
	return out
}

// Slugify normalizes a restaurant name into its tenant key: lowercase with
// every non-alphanumeric run collapsed to underscores.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
