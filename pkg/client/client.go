// Package client is the Go SDK for the EatGreet API. It carries the
// bearer token and the restaurant header on every call and tears the
// session down when the server says the session is no longer valid.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"eatgreet/internal/domain"
)

const restaurantHeader = "X-Restaurant-Name"

// APIError is a decoded problem response.
type APIError struct {
	StatusCode int    `json:"status"`
	Type       string `json:"type"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Type, e.Detail)
}

// Fatal reports whether the error should end the session: an expired or
// rejected token, or a tenant that can no longer be resolved.
func (e *APIError) Fatal() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		(e.StatusCode == http.StatusBadRequest && e.Type == "tenant_unresolved")
}

type Client struct {
	base string
	http *http.Client

	mu         sync.RWMutex
	token      string
	restaurant string

	// OnAuthError runs once per fatal auth failure, after the token is
	// cleared. Used by apps to drop the stored session and re-login.
	OnAuthError func(err *APIError)
}

func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) SetRestaurant(name string) {
	c.mu.Lock()
	c.restaurant = name
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.restaurant != "" {
		req.Header.Set(restaurantHeader, c.restaurant)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if apiErr.Fatal() {
			c.SetToken("")
			if c.OnAuthError != nil {
				c.OnAuthError(apiErr)
			}
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (domain.User, error) {
	var session struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, &session)
	if err != nil {
		return domain.User{}, err
	}
	c.SetToken(session.Token)
	return session.User, nil
}

func (c *Client) Profile(ctx context.Context) (domain.User, error) {
	var u domain.User
	err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, &u)
	return u, err
}

func (c *Client) Menu(ctx context.Context) ([]domain.MenuItem, error) {
	var items []domain.MenuItem
	err := c.do(ctx, http.MethodGet, "/api/menu", nil, &items)
	return items, err
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &cats)
	return cats, err
}

func (c *Client) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	var o domain.Order
	err := c.do(ctx, http.MethodPost, "/api/orders", req, &o)
	return o, err
}

func (c *Client) Orders(ctx context.Context, statuses ...domain.OrderStatus) ([]domain.Order, error) {
	path := "/api/orders"
	if len(statuses) > 0 {
		parts := make([]string, len(statuses))
		for i, s := range statuses {
			parts[i] = string(s)
		}
		path += "?status=" + strings.Join(parts, ",")
	}
	var out []domain.Order
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Order(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := c.do(ctx, http.MethodGet, "/api/orders/"+id, nil, &o)
	return o, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, req domain.UpdateOrderStatusRequest) (domain.Order, error) {
	var o domain.Order
	err := c.do(ctx, http.MethodPut, "/api/orders/"+id+"/status", req, &o)
	return o, err
}

func (c *Client) TableStatus(ctx context.Context, tableNumber string) (domain.TableStatusResponse, error) {
	var res domain.TableStatusResponse
	err := c.do(ctx, http.MethodGet, "/api/orders/table-status/"+tableNumber, nil, &res)
	return res, err
}
