package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"eatgreet/internal/domain"
)

// CartLine is one pending item in the local cart, kept client-side until
// the order is placed.
type CartLine struct {
	MenuItemID string  `json:"menuItem"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

// Session is the locally persisted app state. Nothing here is trusted by
// the server; the token is re-verified on every request.
type Session struct {
	User        *domain.User `json:"user,omitempty"`
	Token       string       `json:"token,omitempty"`
	Restaurant  string       `json:"restaurant,omitempty"`
	TableNumber string       `json:"tableNumber,omitempty"`
	Cart        []CartLine   `json:"cart,omitempty"`
	Favorites   []string     `json:"favorites,omitempty"`
}

// SessionStore persists a Session as JSON at a fixed path. Load and Save
// are explicit; there is no write-through.
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load returns an empty session when the file does not exist yet.
func (s *SessionStore) Load() (Session, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return Session{}, fmt.Errorf("parse session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Save(sess Session) error {
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session, the teardown path after a fatal auth
// error.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Attach installs the session's credentials on an API client and wires
// teardown so a rejected token clears the stored state.
func (s *SessionStore) Attach(c *Client, sess Session) {
	c.SetToken(sess.Token)
	c.SetRestaurant(sess.Restaurant)
	c.OnAuthError = func(*APIError) {
		_ = s.Clear()
	}
}
