// Package content gates startup on the read-only game content database.
package content

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DatabaseFile is the expected content database name under the client
// resource root.
const DatabaseFile = "content.sqlite"

// DB wraps the read-only content database handle.
type DB struct {
	sqlDB *sql.DB
	path  string
}

// Open locates and opens the content database under resRoot. A missing or
// unreadable database is an error; callers treat it as startup-fatal.
func Open(resRoot string) (*DB, error) {
	path := filepath.Join(resRoot, DatabaseFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("content database %s: %w", path, err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open content database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping content database: %w", err)
	}

	return &DB{sqlDB: sqlDB, path: path}, nil
}

// Path reports the resolved database location.
func (db *DB) Path() string {
	return db.path
}

// Close releases the database handle.
func (db *DB) Close() error {
	if db == nil || db.sqlDB == nil {
		return nil
	}
	return db.sqlDB.Close()
}
