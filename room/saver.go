// CLAUDE:SUMMARY Throttled persistence scheduler: Idle → Pending(timer) → Idle, coalescing notifications.
package room

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// saver throttles snapshot persistence for one room. A notification in Idle
// starts the window timer and moves to Pending; notifications while Pending
// coalesce into the single trailing save at window end. Save failures are
// logged and swallowed: the next mutation schedules a fresh attempt, so
// state is at risk for at most one window.
type saver struct {
	window  time.Duration
	save    func(ctx context.Context) error
	onError func(error)
	logger  *slog.Logger

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
	closed  bool
}

func newSaver(window time.Duration, save func(context.Context) error, logger *slog.Logger) *saver {
	return &saver{window: window, save: save, logger: logger}
}

// Notify schedules a save. At most one save fires per window regardless of
// how many notifications arrive.
func (s *saver) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pending {
		return
	}
	s.pending = true
	s.timer = time.AfterFunc(s.window, s.fire)
}

func (s *saver) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// Back to Idle before saving, so a mutation arriving during the save
	// schedules the next window instead of being lost.
	s.pending = false
	s.timer = nil
	s.mu.Unlock()

	if err := s.save(context.Background()); err != nil {
		s.logger.Error("room: snapshot save failed", "error", err)
		if s.onError != nil {
			s.onError(err)
		}
	}
}

// Flush cancels any pending timer and saves immediately. Used at shutdown.
func (s *saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	s.mu.Unlock()
	return s.save(ctx)
}

// Close stops the saver without a final save. A save already in flight may
// still complete.
func (s *saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}
