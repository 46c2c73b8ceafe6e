package liveview

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fetcher loads the current server state for a resource, normally a call
// through the REST client.
type Fetcher func(ctx context.Context) (any, error)

// Subscriber is notified with fresh data after every successful
// revalidation.
type Subscriber func(data any)

type entry struct {
	fetch Fetcher
	subs  []Subscriber
	data  any
	ok    bool
}

// Cache holds one view state per (restaurant, resource) and revalidates
// it on socket events and on an interval. The interval path keeps views
// correct when the socket is down or an event was lost.
type Cache struct {
	interval time.Duration
	log      *logrus.Entry

	mu      sync.Mutex
	entries map[string]*entry
}

// eventResources maps a push event to the resources it invalidates.
var eventResources = map[string][]string{
	"orderUpdated":    {"orders"},
	"menuUpdated":     {"menu"},
	"categoryUpdated": {"categories", "menu"},
}

func NewCache(interval time.Duration, log *logrus.Entry) *Cache {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Cache{interval: interval, log: log, entries: map[string]*entry{}}
}

func key(restaurant, resource string) string {
	return strings.ToLower(restaurant) + "/" + resource
}

// Register installs a fetcher for a resource and subscribes to updates.
// The first revalidation happens on the next Run tick or push event.
func (c *Cache) Register(restaurant, resource string, fetch Fetcher, sub Subscriber) {
	k := key(restaurant, resource)
	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		e = &entry{fetch: fetch}
		c.entries[k] = e
	}
	if sub != nil {
		e.subs = append(e.subs, sub)
	}
	c.mu.Unlock()
}

// Get returns the last known data and whether anything has been loaded.
func (c *Cache) Get(restaurant, resource string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key(restaurant, resource)]
	if !ok || !e.ok {
		return nil, false
	}
	return e.data, true
}

// Bind attaches the cache to a socket so pushes trigger revalidation.
func (c *Cache) Bind(restaurant string, s *Socket) {
	s.OnEvent(func(ev Event) {
		resources, ok := eventResources[ev.Event]
		if !ok {
			return
		}
		for _, res := range resources {
			go c.revalidate(context.Background(), restaurant, res)
		}
	})
}

// Run polls every registered resource on the interval until ctx ends.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.revalidateAll(ctx)
		}
	}
}

func (c *Cache) revalidateAll(ctx context.Context) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	for _, k := range keys {
		parts := strings.SplitN(k, "/", 2)
		c.revalidate(ctx, parts[0], parts[1])
	}
}

func (c *Cache) revalidate(ctx context.Context, restaurant, resource string) {
	k := key(restaurant, resource)
	c.mu.Lock()
	e, ok := c.entries[k]
	c.mu.Unlock()
	if !ok {
		return
	}

	data, err := e.fetch(ctx)
	if err != nil {
		c.log.WithError(err).WithField("resource", k).Debug("revalidate failed")
		return
	}

	c.mu.Lock()
	e.data = data
	e.ok = true
	subs := e.subs
	c.mu.Unlock()
	for _, sub := range subs {
		sub(data)
	}
}
