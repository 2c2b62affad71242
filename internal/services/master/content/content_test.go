package content

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMissingDatabaseFails(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected missing content database to fail")
	}
}

func TestOpenExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DatabaseFile)

	seed, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("seed open: %v", err)
	}
	if _, err := seed.Exec("CREATE TABLE zones (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("seed close: %v", err)
	}

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("open content database: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Fatalf("expected path %s, got %s", path, db.Path())
	}
}
