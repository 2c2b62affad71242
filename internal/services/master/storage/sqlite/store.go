// Package sqlite provides the SQLite-backed run database for master.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/embervale/nexus/internal/platform/storage/sqlitemigrate"
	"github.com/embervale/nexus/internal/services/master/storage"
	"github.com/embervale/nexus/internal/services/master/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// Store implements the master storage interfaces over SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the run database at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

// UpsertServer inserts or refreshes the record keyed by name.
func (s *Store) UpsertServer(ctx context.Context, rec storage.ServerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.Name) == "" {
		return fmt.Errorf("server name is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO servers (name, ip, port, state, version)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET ip = excluded.ip, port = excluded.port,
    state = excluded.state, version = excluded.version
`, rec.Name, rec.IP, rec.Port, rec.State, rec.Version)
	if err != nil {
		return fmt.Errorf("upsert server %s: %w", rec.Name, err)
	}
	return nil
}

// GetServer returns the record for name, or storage.ErrNotFound.
func (s *Store) GetServer(ctx context.Context, name string) (storage.ServerRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ServerRecord{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT name, ip, port, state, version FROM servers WHERE name = ?", name)

	var rec storage.ServerRecord
	err := row.Scan(&rec.Name, &rec.IP, &rec.Port, &rec.State, &rec.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ServerRecord{}, storage.ErrNotFound
		}
		return storage.ServerRecord{}, fmt.Errorf("get server %s: %w", name, err)
	}
	return rec, nil
}

// CurrentPersistentID returns the persisted object-ID high-water mark.
func (s *Store) CurrentPersistentID(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT last_object_id FROM object_id_tracker WHERE id = 1")

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("read object id tracker: %w", err)
	}
	return uint32(id), nil
}

// SavePersistentID persists the object-ID high-water mark.
func (s *Store) SavePersistentID(ctx context.Context, id uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"UPDATE object_id_tracker SET last_object_id = ? WHERE id = 1", int64(id))
	if err != nil {
		return fmt.Errorf("save object id tracker: %w", err)
	}
	return nil
}

// CreateAccount inserts an account with a hashed password.
func (s *Store) CreateAccount(ctx context.Context, name, passwordHash string, gmLevel int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("account name is required")
	}
	if passwordHash == "" {
		return fmt.Errorf("password hash is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO accounts (name, password, gm_level, created_at)
VALUES (?, ?, ?, ?)
`, name, passwordHash, gmLevel, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create account %s: %w", name, err)
	}
	return nil
}
