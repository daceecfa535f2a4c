package room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/toile/blob"
	"github.com/hazyhaar/toile/record"
)

// memBlobs is an in-memory blob.Store with injectable failures and put
// accounting, standing in for the durable collaborator.
type memBlobs struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	putErr  error
	putKeys []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: map[string][]byte{}}
}

func (m *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(d))
	copy(out, d)
	return out, nil
}

func (m *memBlobs) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	d := make([]byte, len(data))
	copy(d, data)
	m.data[key] = d
	m.putKeys = append(m.putKeys, key)
	return nil
}

func (m *memBlobs) putCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.putKeys {
		if k == key {
			n++
		}
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testPage(id, name, index string) *record.Page {
	return &record.Page{ID: id, TypeName: record.TypePage, Name: name, Index: index}
}

func TestRoom_StartsEmptyWhenAbsent(t *testing.T) {
	// WHAT: no prior snapshot means an empty store, not an error.
	// WHY: first access to a fresh room identifier must succeed.
	r, err := newRoom(context.Background(), "fresh", newMemBlobs(), Config{}, testLogger())
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	defer r.Close(context.Background())
	if r.Store().Len() != 0 {
		t.Fatalf("records: got %d, want 0", r.Store().Len())
	}
}

func TestRoom_RestoresFromSnapshot(t *testing.T) {
	blobs := newMemBlobs()
	snap := &record.Snapshot{Records: []record.Record{testPage("page:p1", "One", "a1")}}
	data, _ := json.Marshal(snap)
	blobs.data[blob.RoomKey("atelier")] = data

	r, err := newRoom(context.Background(), "atelier", blobs, Config{}, testLogger())
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	defer r.Close(context.Background())

	pages := r.Store().Snapshot().Pages()
	if len(pages) != 1 || pages[0].ID != "page:p1" {
		t.Fatalf("restored pages: %+v", pages)
	}
}

func TestRoom_LoadFailurePropagates(t *testing.T) {
	// WHAT: a blob store failure fails room construction.
	// WHY: construction cannot proceed without either a snapshot or a
	// definite absence.
	blobs := newMemBlobs()
	blobs.getErr = errors.New("store unavailable")

	_, err := newRoom(context.Background(), "atelier", blobs, Config{}, testLogger())
	if err == nil {
		t.Fatal("expected construction error")
	}
}

func TestRoom_ThrottledPersistence_Coalesces(t *testing.T) {
	// WHAT: M mutations inside one window produce exactly one save holding
	// the state after the last mutation.
	// WHY: the throttle must avoid write amplification without losing the
	// final write of a burst.
	blobs := newMemBlobs()
	cfg := Config{PersistInterval: 60 * time.Millisecond}
	r, err := newRoom(context.Background(), "atelier", blobs, cfg, testLogger())
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	defer r.saver.Close()

	for i, id := range []string{"page:p1", "page:p2", "page:p3"} {
		if err := r.Store().Put(testPage(id, "", "a"+string(rune('1'+i)))); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	key := blob.RoomKey("atelier")
	if n := blobs.putCount(key); n != 0 {
		t.Fatalf("saves before window close: got %d", n)
	}

	time.Sleep(120 * time.Millisecond)
	if n := blobs.putCount(key); n != 1 {
		t.Fatalf("saves after window close: got %d, want 1", n)
	}

	var snap record.Snapshot
	if err := json.Unmarshal(blobs.data[key], &snap); err != nil {
		t.Fatalf("decode persisted snapshot: %v", err)
	}
	if len(snap.Pages()) != 3 {
		t.Fatalf("persisted pages: got %d, want 3 (must be post-burst state)", len(snap.Pages()))
	}
}

func TestRoom_MutationAfterWindowSchedulesAgain(t *testing.T) {
	blobs := newMemBlobs()
	cfg := Config{PersistInterval: 40 * time.Millisecond}
	r, err := newRoom(context.Background(), "atelier", blobs, cfg, testLogger())
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	defer r.saver.Close()

	r.Store().Put(testPage("page:p1", "", "a1"))
	time.Sleep(80 * time.Millisecond)
	r.Store().Put(testPage("page:p2", "", "a2"))
	time.Sleep(80 * time.Millisecond)

	if n := blobs.putCount(blob.RoomKey("atelier")); n != 2 {
		t.Fatalf("saves: got %d, want 2 (one per window)", n)
	}
}

func TestRoom_SaveFailureSwallowedAndRetriedOnNextMutation(t *testing.T) {
	// WHAT: a failed save is logged and dropped; the next mutation
	// schedules a fresh attempt.
	// WHY: retry is the next window's job, not this component's.
	blobs := newMemBlobs()
	cfg := Config{PersistInterval: 30 * time.Millisecond}
	r, err := newRoom(context.Background(), "atelier", blobs, cfg, testLogger())
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	defer r.saver.Close()

	blobs.mu.Lock()
	blobs.putErr = errors.New("store unavailable")
	blobs.mu.Unlock()

	r.Store().Put(testPage("page:p1", "", "a1"))
	time.Sleep(60 * time.Millisecond)

	if n := blobs.putCount(blob.RoomKey("atelier")); n != 0 {
		t.Fatalf("saves during outage: got %d", n)
	}

	blobs.mu.Lock()
	blobs.putErr = nil
	blobs.mu.Unlock()

	r.Store().Put(testPage("page:p2", "", "a2"))
	time.Sleep(60 * time.Millisecond)

	if n := blobs.putCount(blob.RoomKey("atelier")); n != 1 {
		t.Fatalf("saves after recovery: got %d, want 1", n)
	}
}

func TestRoom_SaveFailureReportedThroughHook(t *testing.T) {
	// WHAT: a failed background save invokes OnSaveError with the room id;
	// a successful save does not.
	// WHY: the throttle swallows failures, so the hook is the host's only
	// signal to record them in the event log.
	blobs := newMemBlobs()
	blobs.mu.Lock()
	blobs.putErr = errors.New("store unavailable")
	blobs.mu.Unlock()

	type failure struct {
		roomID string
		err    error
	}
	var mu sync.Mutex
	var failures []failure

	cfg := Config{
		PersistInterval: 30 * time.Millisecond,
		OnSaveError: func(roomID string, err error) {
			mu.Lock()
			failures = append(failures, failure{roomID, err})
			mu.Unlock()
		},
	}
	r, err := newRoom(context.Background(), "atelier", blobs, cfg, testLogger())
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	defer r.saver.Close()

	r.Store().Put(testPage("page:p1", "", "a1"))
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	got := len(failures)
	mu.Unlock()
	if got != 1 {
		t.Fatalf("hook invocations during outage: got %d, want 1", got)
	}
	if failures[0].roomID != "atelier" || failures[0].err == nil {
		t.Fatalf("hook payload: %+v", failures[0])
	}

	blobs.mu.Lock()
	blobs.putErr = nil
	blobs.mu.Unlock()

	r.Store().Put(testPage("page:p2", "", "a2"))
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	got = len(failures)
	mu.Unlock()
	if got != 1 {
		t.Fatalf("hook invocations after recovery: got %d, want 1", got)
	}
}

func TestRoom_FlushPersistsImmediately(t *testing.T) {
	blobs := newMemBlobs()
	r, err := newRoom(context.Background(), "atelier", blobs, Config{PersistInterval: time.Hour}, testLogger())
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	r.Store().Put(testPage("page:p1", "", "a1"))

	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n := blobs.putCount(blob.RoomKey("atelier")); n != 1 {
		t.Fatalf("saves after flush: got %d, want 1", n)
	}
}
