// CLAUDE:SUMMARY SQLite event log for tool invocations and persistence failures, async and non-blocking, with a kit endpoint middleware.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/toile/idgen"
	"github.com/hazyhaar/toile/kit"
)

const schema = `
CREATE TABLE IF NOT EXISTS event_log (
	entry_id   TEXT PRIMARY KEY,
	timestamp  INTEGER NOT NULL,
	action     TEXT NOT NULL,
	room_id    TEXT,
	session_id TEXT,
	transport  TEXT,
	parameters TEXT,
	status     TEXT NOT NULL,
	error      TEXT,
	elapsed_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_event_log_room ON event_log(room_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_event_log_action ON event_log(action, timestamp);
`

// Entry is one logged event. Zero-valued fields are filled at log time:
// EntryID, Timestamp, Transport (from context), and Status ("success"
// unless Error is set).
type Entry struct {
	EntryID    string
	Timestamp  int64
	Action     string
	RoomID     string
	SessionID  string
	Transport  string
	Parameters string
	Status     string
	Error      string
	ElapsedMS  int64
}

// SQLiteLogger writes events to a dedicated SQLite database. LogAsync never
// blocks the caller: entries go through a buffered channel to a single
// writer goroutine, and overflow is dropped with a slog warning rather than
// stalling a tool call.
type SQLiteLogger struct {
	db     *sql.DB
	logger *slog.Logger
	newID  idgen.Generator

	ch     chan *Entry
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// Option customizes a SQLiteLogger.
type Option func(*SQLiteLogger)

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *SQLiteLogger) { l.newID = gen }
}

// WithLogger sets the slog logger used for drop and write-failure warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(l *SQLiteLogger) { l.logger = logger }
}

// NewSQLiteLogger builds a logger over db and starts its writer goroutine.
func NewSQLiteLogger(db *sql.DB, opts ...Option) *SQLiteLogger {
	l := &SQLiteLogger{
		db:     db,
		logger: slog.Default(),
		newID:  idgen.Prefixed("evt_", idgen.NanoID(12)),
		ch:     make(chan *Entry, 256),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.wg.Add(1)
	go l.writeLoop()
	return l
}

// Init creates the event_log table.
func (l *SQLiteLogger) Init() error {
	_, err := l.db.Exec(schema)
	return err
}

// Log writes one entry synchronously, filling defaults from ctx.
func (l *SQLiteLogger) Log(ctx context.Context, e *Entry) error {
	l.fillDefaults(ctx, e)
	return l.insert(e)
}

// LogAsync queues one entry for the writer goroutine. Never blocks: if the
// buffer is full the entry is dropped with a warning. Entries logged after
// Close are discarded.
func (l *SQLiteLogger) LogAsync(e *Entry) {
	l.fillDefaults(context.Background(), e)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.ch <- e:
	default:
		l.logger.Warn("observability: event buffer full, entry dropped", "action", e.Action)
	}
}

// Close stops the writer after draining queued entries. Idempotent.
func (l *SQLiteLogger) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
	l.mu.Unlock()
	l.wg.Wait()
	return nil
}

func (l *SQLiteLogger) writeLoop() {
	defer l.wg.Done()
	for e := range l.ch {
		if err := l.insert(e); err != nil {
			l.logger.Warn("observability: event write failed", "action", e.Action, "error", err)
		}
	}
}

func (l *SQLiteLogger) fillDefaults(ctx context.Context, e *Entry) {
	if e.EntryID == "" {
		e.EntryID = l.newID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	if e.Transport == "" {
		e.Transport = kit.GetTransport(ctx)
	}
	if e.SessionID == "" {
		e.SessionID = kit.GetSessionID(ctx)
	}
	if e.RoomID == "" {
		e.RoomID = kit.GetRoomID(ctx)
	}
	if e.Status == "" {
		if e.Error != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

func (l *SQLiteLogger) insert(e *Entry) error {
	_, err := l.db.Exec(`INSERT INTO event_log
		(entry_id, timestamp, action, room_id, session_id, transport, parameters, status, error, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EntryID, e.Timestamp, e.Action, e.RoomID, e.SessionID, e.Transport,
		e.Parameters, e.Status, e.Error, e.ElapsedMS)
	return err
}

// Recent returns the newest entries, most recent first. Serves the admin
// surface; limit is clamped to 1000.
func (l *SQLiteLogger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rows, err := l.db.QueryContext(ctx, `SELECT entry_id, timestamp, action, room_id, session_id,
		transport, parameters, status, error, elapsed_ms
		FROM event_log ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.EntryID, &e.Timestamp, &e.Action, &e.RoomID, &e.SessionID,
			&e.Transport, &e.Parameters, &e.Status, &e.Error, &e.ElapsedMS); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Middleware wraps a kit.Endpoint so every invocation is logged
// asynchronously under the given action name. Request payloads are recorded
// as JSON when they marshal; failures to marshal log an empty parameter
// string rather than failing the call.
func Middleware(l *SQLiteLogger, action string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			e := &Entry{
				Action:    action,
				SessionID: kit.GetSessionID(ctx),
				RoomID:    kit.GetRoomID(ctx),
				Transport: kit.GetTransport(ctx),
				ElapsedMS: time.Since(start).Milliseconds(),
			}
			if data, merr := json.Marshal(req); merr == nil {
				e.Parameters = string(data)
			}
			if err != nil {
				e.Error = err.Error()
			}
			l.LogAsync(e)
			return resp, err
		}
	}
}
