package liveview

import (
	"github.com/sirupsen/logrus"

	"eatgreet/internal/config"
)

// New builds a socket/cache pair from the service's sync settings and
// binds the cache to the socket's push events. This is the default wiring
// for client programs; construct the pieces directly for custom setups.
func New(url, restaurant string, sync config.SyncConfig, log *logrus.Entry) (*Socket, *Cache) {
	s := NewSocket(url, restaurant, SocketOptions{
		ReconnectDelay: sync.ReconnectDelay,
		ReconnectMax:   sync.ReconnectMax,
	}, log)
	c := NewCache(sync.PollInterval, log)
	c.Bind(restaurant, s)
	return s, c
}
