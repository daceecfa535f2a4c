// CLAUDE:SUMMARY Room: exclusive in-memory owner of one canvas room's records, with throttled persistence and live sessions.
// Package room implements the room lifecycle: lazy single-construction of
// room state from the blob store, exclusive in-memory ownership per room
// identifier, throttled persistence on mutation, and live socket sessions.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/toile/blob"
	"github.com/hazyhaar/toile/record"
)

// Room owns the record store for one room identifier. There is exactly one
// live Room per identifier per process; all mutations flow through its
// store, and every mutation schedules a throttled snapshot save.
type Room struct {
	id     string
	store  *record.Store
	blobs  blob.Store
	saver  *saver
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// newRoom loads the prior snapshot (if any) and builds the room. The blob
// load happens exactly once per Room lifetime; a load failure fails the
// construction and propagates to every waiting caller.
func newRoom(ctx context.Context, id string, blobs blob.Store, cfg Config, logger *slog.Logger) (*Room, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	data, err := blobs.Get(ctx, blob.RoomKey(id))
	if err != nil {
		return nil, fmt.Errorf("room %s: load snapshot: %w", id, err)
	}

	var store *record.Store
	if data == nil {
		store = record.NewStore()
		logger.Info("room: starting empty", "room_id", id)
	} else {
		var snap record.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("room %s: decode snapshot: %w", id, err)
		}
		store, err = record.FromSnapshot(&snap)
		if err != nil {
			return nil, fmt.Errorf("room %s: restore snapshot: %w", id, err)
		}
		logger.Info("room: restored from snapshot", "room_id", id, "records", store.Len())
	}

	r := &Room{
		id:       id,
		store:    store,
		blobs:    blobs,
		logger:   logger,
		sessions: make(map[string]*session),
	}
	r.saver = newSaver(cfg.PersistInterval, r.persist, logger)
	if cfg.OnSaveError != nil {
		r.saver.onError = func(err error) { cfg.OnSaveError(id, err) }
	}

	store.OnChange(func() {
		r.saver.Notify()
		r.broadcast()
	})
	return r, nil
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Store returns the room's record store. The returned store is shared: it
// is the single point of truth for this room identifier.
func (r *Room) Store() *record.Store { return r.store }

// persist writes the current full snapshot to the blob store.
func (r *Room) persist(ctx context.Context) error {
	snap := r.store.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("room %s: encode snapshot: %w", r.id, err)
	}
	if err := r.blobs.Put(ctx, blob.RoomKey(r.id), data); err != nil {
		return fmt.Errorf("room %s: %w", r.id, err)
	}
	r.logger.Debug("room: snapshot saved", "room_id", r.id, "records", len(snap.Records), "bytes", len(data))
	return nil
}

// Flush persists immediately, bypassing the throttle. Used at shutdown.
func (r *Room) Flush(ctx context.Context) error {
	return r.saver.Flush(ctx)
}

// Close flushes state and tears down live sessions.
func (r *Room) Close(ctx context.Context) error {
	err := r.saver.Flush(ctx)
	r.saver.Close()

	r.mu.Lock()
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	return err
}
