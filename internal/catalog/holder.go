package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotLoaded is returned while no catalogue has been loaded.
var ErrNotLoaded = errors.New("catalogue not loaded")

// Holder provides thread-safe access to the current catalogue snapshot.
type Holder struct {
	catalog atomic.Pointer[Catalog]
	mu      sync.Mutex // serializes reloads
	load    func(ctx context.Context) (*Catalog, error)
}

// NewHolder creates an empty Holder that reloads through load.
func NewHolder(load func(ctx context.Context) (*Catalog, error)) *Holder {
	return &Holder{load: load}
}

// Get returns the current catalogue, or nil if none has been loaded.
func (h *Holder) Get() *Catalog {
	return h.catalog.Load()
}

// Set atomically replaces the current catalogue.
func (h *Holder) Set(c *Catalog) {
	h.catalog.Store(c)
}

// Reload loads a fresh catalogue and swaps it in. On failure the previous
// snapshot stays in place.
func (h *Holder) Reload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, err := h.load(ctx)
	if err != nil {
		return err
	}
	h.catalog.Store(c)
	return nil
}

// AgeSeconds returns the age of the current catalogue in seconds.
// Returns -1 if none is loaded.
func (h *Holder) AgeSeconds() float64 {
	c := h.catalog.Load()
	if c == nil {
		return -1
	}
	return time.Since(c.LoadedAt).Seconds()
}

// Users returns every user of the current snapshot.
func (h *Holder) Users(_ context.Context) ([]User, error) {
	c := h.catalog.Load()
	if c == nil {
		return nil, ErrNotLoaded
	}
	return c.Users(), nil
}

// Observations returns the user's observations from the current snapshot.
// Unknown users have none.
func (h *Holder) Observations(_ context.Context, userID string) ([]Observation, error) {
	c := h.catalog.Load()
	if c == nil {
		return nil, ErrNotLoaded
	}
	return c.Observations(userID), nil
}
