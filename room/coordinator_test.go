package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCoordinator_RoomBeforeBind(t *testing.T) {
	// WHAT: accessing the room before binding fails.
	// WHY: the identifier is bound exactly once; access without it is a
	// sequencing error.
	c := NewCoordinator("actor-1", newMemBlobs(), Config{}, testLogger())
	_, err := c.Room(context.Background())
	if !errors.Is(err, ErrMissingRoomID) {
		t.Fatalf("error: got %v, want ErrMissingRoomID", err)
	}
}

func TestCoordinator_BindIsExactlyOnce(t *testing.T) {
	c := NewCoordinator("actor-1", newMemBlobs(), Config{}, testLogger())
	ctx := context.Background()

	if err := c.Bind(ctx, "atelier"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := c.Bind(ctx, "atelier"); err != nil {
		t.Fatalf("re-bind same id should be a no-op: %v", err)
	}
	if err := c.Bind(ctx, "other"); !errors.Is(err, ErrRebind) {
		t.Fatalf("re-bind new id: got %v, want ErrRebind", err)
	}
}

func TestCoordinator_BindingRecoveredAcrossRestart(t *testing.T) {
	// WHAT: a restarted coordinator over the same blob store recovers its
	// persisted binding.
	// WHY: the hosting actor may be torn down and revived at any time.
	blobs := newMemBlobs()
	ctx := context.Background()

	first := NewCoordinator("actor-1", blobs, Config{}, testLogger())
	if err := first.Bind(ctx, "atelier"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	second := NewCoordinator("actor-1", blobs, Config{}, testLogger())
	id, err := second.RoomID(ctx)
	if err != nil {
		t.Fatalf("room id: %v", err)
	}
	if id != "atelier" {
		t.Fatalf("recovered binding: got %q, want atelier", id)
	}

	r, err := second.Room(ctx)
	if err != nil {
		t.Fatalf("room after recovery: %v", err)
	}
	defer r.Close(ctx)
	if r.ID() != "atelier" {
		t.Fatalf("room id: got %q", r.ID())
	}
}

func TestCoordinator_ConcurrentFirstAccessSharesOneRoom(t *testing.T) {
	// WHAT: N concurrent first-time acquisitions yield one Room and one
	// record store, observable via a shared write.
	// WHY: two independently constructed stores for the same identifier
	// would silently diverge and corrupt persisted state.
	c := NewCoordinator("actor-1", newMemBlobs(), Config{}, testLogger())
	ctx := context.Background()
	if err := c.Bind(ctx, "atelier"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	const n = 16
	rooms := make([]*Room, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.Room(ctx)
			if err != nil {
				t.Errorf("room %d: %v", i, err)
				return
			}
			rooms[i] = r
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if rooms[i] != rooms[0] {
			t.Fatalf("handle %d is a different Room instance", i)
		}
	}

	// A write through one handle is visible through any other.
	if err := rooms[0].Store().Put(testPage("page:p1", "Shared", "a1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := rooms[n-1].Store().Get("page:p1"); !ok {
		t.Fatal("write through handle 0 not visible through handle n-1")
	}

	rooms[0].Close(ctx)
}

func TestCoordinator_FailedConstructionIsRetried(t *testing.T) {
	// WHAT: a load failure is not memoized; the next caller retries.
	// WHY: a transient store outage must not poison the room for the
	// process lifetime.
	blobs := newMemBlobs()
	c := NewCoordinator("actor-1", blobs, Config{}, testLogger())
	ctx := context.Background()
	if err := c.Bind(ctx, "atelier"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	blobs.mu.Lock()
	blobs.getErr = errors.New("store unavailable")
	blobs.mu.Unlock()

	if _, err := c.Room(ctx); err == nil {
		t.Fatal("expected load failure")
	}

	blobs.mu.Lock()
	blobs.getErr = nil
	blobs.mu.Unlock()

	r, err := c.Room(ctx)
	if err != nil {
		t.Fatalf("retry after outage: %v", err)
	}
	defer r.Close(ctx)
}

func TestCoordinator_RoomHonorsContextCancellation(t *testing.T) {
	c := NewCoordinator("actor-1", newMemBlobs(), Config{}, testLogger())
	if err := c.Bind(context.Background(), "atelier"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	// The room may construct fast enough to win the race; only a returned
	// context error counts as cancellation behavior.
	if _, err := c.Room(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Close(context.Background())
}

func TestRegistry_AcquireSameRoom(t *testing.T) {
	// WHAT: repeated and concurrent Acquire calls for one identifier
	// return the same Room.
	// WHY: the registry is the process-wide arena for room ownership.
	g := NewRegistry(newMemBlobs(), Config{}, testLogger())
	ctx := context.Background()

	const n = 8
	rooms := make([]*Room, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := g.Acquire(ctx, "atelier")
			if err != nil {
				t.Errorf("acquire %d: %v", i, err)
				return
			}
			rooms[i] = r
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if rooms[i] != rooms[0] {
			t.Fatalf("acquire %d returned a different Room", i)
		}
	}
	g.Close(ctx)
}

func TestRegistry_DistinctRoomsAreIndependent(t *testing.T) {
	g := NewRegistry(newMemBlobs(), Config{}, testLogger())
	ctx := context.Background()

	a, err := g.Acquire(ctx, "room-a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	b, err := g.Acquire(ctx, "room-b")
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	if a == b {
		t.Fatal("distinct identifiers share a Room")
	}

	a.Store().Put(testPage("page:p1", "A only", "a1"))
	if _, ok := b.Store().Get("page:p1"); ok {
		t.Fatal("write to room-a leaked into room-b")
	}
	g.Close(ctx)
}

func TestRegistry_AcquireEmptyID(t *testing.T) {
	g := NewRegistry(newMemBlobs(), Config{}, testLogger())
	if _, err := g.Acquire(context.Background(), ""); !errors.Is(err, ErrMissingRoomID) {
		t.Fatalf("error: got %v, want ErrMissingRoomID", err)
	}
}
