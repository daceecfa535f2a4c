package dbopen

import (
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpen_Defaults(t *testing.T) {
	// WHAT: Open applies WAL + foreign keys + busy timeout.
	// WHY: every toile database relies on these pragmas.
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys: got %d, want 1", fk)
	}

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("pragma busy_timeout: %v", err)
	}
	if timeout != 10_000 {
		t.Fatalf("busy_timeout: got %d, want 10000", timeout)
	}
}

func TestOpen_WithoutForeignKeys(t *testing.T) {
	db := OpenMemory(t, WithoutForeignKeys())
	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 0 {
		t.Fatalf("foreign_keys: got %d, want 0", fk)
	}
}

func TestOpen_WithSchema(t *testing.T) {
	// WHAT: inline schema runs after pragmas.
	// WHY: blob and observability stores bootstrap their tables this way.
	db := OpenMemory(t, WithSchema("CREATE TABLE things (id TEXT PRIMARY KEY)"))
	if _, err := db.Exec("INSERT INTO things (id) VALUES ('a')"); err != nil {
		t.Fatalf("insert into schema table: %v", err)
	}
}

func TestOpen_WithMkdirAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "toile.db")
	db, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatalf("open with mkdir: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpen_BadDriver(t *testing.T) {
	_, err := Open(":memory:", WithDriver("no-such-driver"))
	if err == nil {
		t.Fatal("expected error for unregistered driver")
	}
}
