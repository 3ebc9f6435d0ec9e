package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pagelens/dbopen"
)

func TestOpen_AppliesPragmas(t *testing.T) {
	// WHAT: Open sets WAL, foreign keys and the busy timeout.
	// WHY: The audit writer and the statusweb reader share one file;
	// without WAL and a busy timeout they starve each other.
	db, err := dbopen.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatal(err)
	}
	if journalMode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", journalMode)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	var busy int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatal(err)
	}
	if busy != 10_000 {
		t.Fatalf("busy_timeout = %d, want 10000", busy)
	}
}

func TestOpen_WithMkdirAll(t *testing.T) {
	// WHAT: WithMkdirAll creates missing parent directories; without it
	// a missing directory fails the open.
	// WHY: The audit store lives under the artifact dir, which may not
	// exist on first run.
	nested := filepath.Join(t.TempDir(), "artifacts", "state", "audit.db")

	if _, err := dbopen.Open(nested); err == nil {
		t.Fatal("expected error without WithMkdirAll")
	}

	db, err := dbopen.Open(nested, dbopen.WithMkdirAll())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(nested)); err != nil {
		t.Fatalf("parent dir not created: %v", err)
	}
}

func TestOpenMemory(t *testing.T) {
	// WHAT: OpenMemory yields a usable single-connection database.
	// WHY: Package tests across the repo build on this fixture.
	db := dbopen.OpenMemory(t)

	if _, err := db.Exec("CREATE TABLE probe (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO probe (id) VALUES (1)"); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM probe").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestIsBusy(t *testing.T) {
	// WHAT: Busy classification matches the three SQLite lock messages
	// and nothing else.
	// WHY: Only contention is worth retrying; real errors must surface.
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sqlite_busy", errors.New("SQLITE_BUSY: database is busy"), true},
		{"db_locked", errors.New("database is locked (5)"), true},
		{"table_locked", errors.New("database table is locked"), true},
		{"wrapped", fmt.Errorf("audit: insert: %w", errors.New("database is locked")), true},
		{"other", errors.New("no such table: audit_log"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dbopen.IsBusy(tc.err); got != tc.want {
				t.Fatalf("IsBusy(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestExec(t *testing.T) {
	// WHAT: Exec runs a statement and reports affected rows.
	// WHY: The audit insert and cleanup paths go through it.
	db := dbopen.OpenMemory(t)
	if _, err := db.Exec("CREATE TABLE entries (id TEXT PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	res, err := dbopen.Exec(ctx, db, "INSERT INTO entries (id) VALUES (?)", "act_1")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("rows affected: got %d, want 1", n)
	}

	if _, err := dbopen.Exec(ctx, db, "INSERT INTO nowhere VALUES (1)"); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestRunTx(t *testing.T) {
	// WHAT: RunTx commits when fn succeeds and rolls back when it fails.
	// WHY: A batch flush must be all-or-nothing.
	db := dbopen.OpenMemory(t)
	if _, err := db.Exec("CREATE TABLE entries (id TEXT PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	err := dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		for _, id := range []string{"a", "b", "c"} {
			if _, err := tx.ExecContext(ctx, "INSERT INTO entries (id) VALUES (?)", id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	if count != 3 {
		t.Fatalf("after commit: count = %d, want 3", count)
	}

	sentinel := errors.New("abort")
	err = dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO entries (id) VALUES (?)", "d"); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error: got %v, want sentinel", err)
	}

	db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	if count != 3 {
		t.Fatalf("after rollback: count = %d, want 3", count)
	}
}
