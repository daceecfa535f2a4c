// CLAUDE:SUMMARY Registry: one coordinator per room identifier, process-lifetime scope, no ambient singletons.
package room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hazyhaar/toile/blob"
)

// Registry hands out rooms keyed by room identifier. Each identifier maps
// to exactly one Coordinator for the process lifetime; rooms are never
// evicted (host teardown is the only eviction).
type Registry struct {
	blobs  blob.Store
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	coords map[string]*Coordinator
}

// NewRegistry creates an empty registry.
func NewRegistry(blobs blob.Store, cfg Config, logger *slog.Logger) *Registry {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		blobs:  blobs,
		cfg:    cfg,
		logger: logger,
		coords: make(map[string]*Coordinator),
	}
}

// Acquire returns the Room for roomID, creating and binding its coordinator
// on first access. Concurrent first-callers for the same identifier share
// one construction and receive the same Room instance.
func (g *Registry) Acquire(ctx context.Context, roomID string) (*Room, error) {
	if roomID == "" {
		return nil, ErrMissingRoomID
	}

	g.mu.Lock()
	coord, ok := g.coords[roomID]
	if !ok {
		coord = NewCoordinator(roomID, g.blobs, g.cfg, g.logger)
		g.coords[roomID] = coord
	}
	g.mu.Unlock()

	if err := coord.Bind(ctx, roomID); err != nil {
		return nil, err
	}
	return coord.Room(ctx)
}

// Coordinator returns the coordinator for roomID, if one exists.
func (g *Registry) Coordinator(roomID string) (*Coordinator, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.coords[roomID]
	return c, ok
}

// Close flushes and closes every live room.
func (g *Registry) Close(ctx context.Context) error {
	g.mu.Lock()
	coords := make([]*Coordinator, 0, len(g.coords))
	for _, c := range g.coords {
		coords = append(coords, c)
	}
	g.mu.Unlock()

	var firstErr error
	for _, c := range coords {
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
