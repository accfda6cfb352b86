package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/worldgate/adapters/sqlite"
)

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "worldgate-test.db")

	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(path)
	}

	return db, cleanup
}

func TestMigrate_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	versions, err := db.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) != 1 || versions[0] != "001_runs" {
		t.Errorf("versions = %v, want [001_runs]", versions)
	}
}

func TestOpen_Memory(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM parse_runs").Scan(&n); err != nil {
		t.Fatalf("query parse_runs: %v", err)
	}
	if n != 0 {
		t.Errorf("parse_runs has %d rows, want 0", n)
	}
}
