// CLAUDE:SUMMARY Coordinator: bind-once room identity with persisted recovery, memoized lazy room construction.
package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/toile/blob"
)

// ErrMissingRoomID is returned when a room is accessed before an identifier
// has been bound to the coordinator. This is a sequencing error in the
// caller, fatal to the request.
var ErrMissingRoomID = errors.New("room: no room identifier bound")

// ErrRebind is returned when Bind is called with a different identifier
// than the one already bound. The binding is exactly-once.
var ErrRebind = errors.New("room: coordinator already bound to another room")

// Coordinator owns the room for one hosting actor. The room identifier is
// bound exactly once (on first inbound connection or tool call) and
// persisted, so a restarted coordinator over the same blob store recovers
// the same binding. Room construction is lazy and memoized: concurrent
// first-callers share one in-flight load rather than racing two stores for
// the same identifier.
type Coordinator struct {
	actorID string
	blobs   blob.Store
	cfg     Config
	logger  *slog.Logger

	mu        sync.Mutex
	roomID    string
	recovered bool
	cell      *roomCell
}

// roomCell is a construction-state cell: pending while done is open,
// completed once closed.
type roomCell struct {
	done chan struct{}
	room *Room
	err  error
}

// NewCoordinator creates a coordinator for one hosting actor. No I/O
// happens until Bind or Room is called.
func NewCoordinator(actorID string, blobs blob.Store, cfg Config, logger *slog.Logger) *Coordinator {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{actorID: actorID, blobs: blobs, cfg: cfg, logger: logger}
}

// Bind binds the room identifier and persists the binding. Binding the same
// identifier again is a no-op; a different identifier fails with ErrRebind.
func (c *Coordinator) Bind(ctx context.Context, roomID string) error {
	if roomID == "" {
		return ErrMissingRoomID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.recoverBindingLocked(ctx); err != nil {
		return err
	}
	if c.roomID == roomID {
		return nil
	}
	if c.roomID != "" {
		return fmt.Errorf("%w: bound to %q, got %q", ErrRebind, c.roomID, roomID)
	}

	if err := c.blobs.Put(ctx, blob.BindingKey(c.actorID), []byte(roomID)); err != nil {
		return fmt.Errorf("room: persist binding: %w", err)
	}
	c.roomID = roomID
	c.logger.Info("room: coordinator bound", "actor_id", c.actorID, "room_id", roomID)
	return nil
}

// RoomID returns the bound identifier, or empty if unbound.
func (c *Coordinator) RoomID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.recoverBindingLocked(ctx); err != nil {
		return "", err
	}
	return c.roomID, nil
}

// recoverBindingLocked loads a previously persisted binding once per
// coordinator lifetime. Caller holds c.mu.
func (c *Coordinator) recoverBindingLocked(ctx context.Context) error {
	if c.recovered {
		return nil
	}
	data, err := c.blobs.Get(ctx, blob.BindingKey(c.actorID))
	if err != nil {
		return fmt.Errorf("room: recover binding: %w", err)
	}
	if data != nil {
		c.roomID = string(data)
		c.logger.Info("room: binding recovered", "actor_id", c.actorID, "room_id", c.roomID)
	}
	c.recovered = true
	return nil
}

// Room returns the coordinator's Room, constructing it on first access.
// All callers — concurrent or sequential — receive the same instance. A
// failed construction is not memoized: the next caller retries the load.
func (c *Coordinator) Room(ctx context.Context) (*Room, error) {
	c.mu.Lock()
	if err := c.recoverBindingLocked(ctx); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.roomID == "" {
		c.mu.Unlock()
		return nil, ErrMissingRoomID
	}
	cell := c.cell
	if cell == nil {
		cell = &roomCell{done: make(chan struct{})}
		c.cell = cell
		roomID := c.roomID
		go c.construct(cell, roomID)
	}
	c.mu.Unlock()

	select {
	case <-cell.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return cell.room, cell.err
}

func (c *Coordinator) construct(cell *roomCell, roomID string) {
	r, err := newRoom(context.Background(), roomID, c.blobs, c.cfg, c.logger)
	cell.room, cell.err = r, err
	if err != nil {
		// Clear the cell so a later caller can retry the load.
		c.mu.Lock()
		if c.cell == cell {
			c.cell = nil
		}
		c.mu.Unlock()
	}
	close(cell.done)
}

// Close tears down the room if it was constructed.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	cell := c.cell
	c.mu.Unlock()
	if cell == nil {
		return nil
	}
	<-cell.done
	if cell.room == nil {
		return nil
	}
	return cell.room.Close(ctx)
}
