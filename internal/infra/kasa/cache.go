package kasa

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Cache is the single mutable slot holding at most one live plug handle.
// The slot only ever contains a handle whose most recent refresh succeeded.
type Cache struct {
	client *Client
	addr   string
	logger *slog.Logger

	mu       sync.Mutex
	plug     *Plug
	connects int
}

func NewCache(client *Client, addr string, logger *slog.Logger) *Cache {
	return &Cache{client: client, addr: addr, logger: logger}
}

// Resolve returns a refreshed handle for the configured address. A cached
// handle is reused when its refresh succeeds; otherwise it is discarded and
// one fresh connection is attempted before reporting failure.
func (c *Cache) Resolve(ctx context.Context) (*Plug, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.plug != nil {
		err := c.plug.Update(ctx)
		if err == nil {
			return c.plug, nil
		}
		// Stale handle: drop it and fall through to a fresh connection.
		c.logger.Warn("cached handle refresh failed, reconnecting",
			"addr", c.addr,
			"error", err,
		)
		c.plug = nil
	}

	c.connects++
	plug := c.client.NewPlug(c.addr)
	if err := plug.Update(ctx); err != nil {
		return nil, fmt.Errorf("connecting to kasa device at %s: %w", c.addr, err)
	}

	c.plug = plug
	c.logger.Debug("connected to kasa device",
		"addr", c.addr,
		"alias", plug.Device().Alias,
	)
	return plug, nil
}

// Invalidate empties the slot. The next Resolve starts from a fresh
// connection attempt.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plug = nil
}

// Connects reports how many fresh connection attempts Resolve has made.
func (c *Cache) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}
