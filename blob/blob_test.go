package blob

import (
	"bytes"
	"context"
	"testing"

	"github.com/hazyhaar/toile/dbopen"

	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s := NewSQLiteStore(db)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestStore_GetAbsent(t *testing.T) {
	// WHAT: a missing key yields (nil, nil), not an error.
	// WHY: absence is how a room knows to start empty.
	s := setupTestStore(t)
	data, err := s.Get(context.Background(), RoomKey("nope"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if data != nil {
		t.Fatalf("absent key: got %d bytes", len(data))
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	payload := []byte(`{"records":[]}`)
	if err := s.Put(ctx, RoomKey("atelier"), payload); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, RoomKey("atelier"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip: got %q", got)
	}
}

func TestStore_PutReplaces(t *testing.T) {
	// WHAT: a second put for the same key overwrites.
	// WHY: every throttled save rewrites the full snapshot.
	s := setupTestStore(t)
	ctx := context.Background()

	s.Put(ctx, RoomKey("atelier"), []byte("v1"))
	if err := s.Put(ctx, RoomKey("atelier"), []byte("v2")); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, _ := s.Get(ctx, RoomKey("atelier"))
	if string(got) != "v2" {
		t.Fatalf("got %q, want v2", got)
	}
}

func TestKeys(t *testing.T) {
	if k := RoomKey("x"); k != "rooms/x" {
		t.Fatalf("room key: %q", k)
	}
	if k := BindingKey("a"); k != "bindings/a" {
		t.Fatalf("binding key: %q", k)
	}
}
