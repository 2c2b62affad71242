// Package storage defines the persistence interfaces consumed by master.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("not found")

// ServerRecord is one row of the servers table. Master upserts its own row
// at startup so the rest of the fleet can find it.
type ServerRecord struct {
	Name    string
	IP      string
	Port    int
	State   int
	Version int
}

// ServerStore persists fleet server records.
type ServerStore interface {
	// UpsertServer inserts or refreshes the record keyed by name.
	UpsertServer(ctx context.Context, rec ServerRecord) error
	// GetServer returns the record for name, or ErrNotFound.
	GetServer(ctx context.Context, name string) (ServerRecord, error)
}

// ObjectIDStore checkpoints the persistent object-ID high-water mark.
type ObjectIDStore interface {
	// CurrentPersistentID returns the persisted high-water mark.
	CurrentPersistentID(ctx context.Context) (uint32, error)
	// SavePersistentID persists the high-water mark.
	SavePersistentID(ctx context.Context, id uint32) error
}

// AccountStore creates operator accounts.
type AccountStore interface {
	// CreateAccount inserts an account with a hashed password.
	CreateAccount(ctx context.Context, name, passwordHash string, gmLevel int) error
}
