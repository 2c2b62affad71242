// Package objectid allocates persistent object IDs for the universe.
package objectid

import (
	"context"
	"fmt"

	"github.com/embervale/nexus/internal/services/master/storage"
)

// Allocator hands out monotonically increasing object IDs, checkpointing the
// high-water mark to storage. Exactly one Allocator exists per process; IDs
// are never reused, even across restarts.
type Allocator struct {
	store   storage.ObjectIDStore
	current uint32
}

// NewAllocator loads the persisted high-water mark. A storage read failure
// is returned to the caller and is startup-fatal: minting IDs below the
// persisted mark would hand out duplicates.
func NewAllocator(ctx context.Context, store storage.ObjectIDStore) (*Allocator, error) {
	if store == nil {
		return nil, fmt.Errorf("object id store is required")
	}
	current, err := store.CurrentPersistentID(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persistent id: %w", err)
	}
	return &Allocator{store: store, current: current}, nil
}

// Allocate returns the next persistent ID.
func (a *Allocator) Allocate() uint32 {
	a.current++
	return a.current
}

// Current reports the high-water mark without advancing it.
func (a *Allocator) Current() uint32 {
	return a.current
}

// Save checkpoints the high-water mark to storage. Called periodically and
// during shutdown.
func (a *Allocator) Save(ctx context.Context) error {
	if err := a.store.SavePersistentID(ctx, a.current); err != nil {
		return fmt.Errorf("save persistent id: %w", err)
	}
	return nil
}
