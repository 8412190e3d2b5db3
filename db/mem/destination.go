package mem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	dbt "wander/db/db"
)

// InMemoryDestinationDBWrapper is a map-backed implementation of
// dbt.DestinationDBWrapper.
type InMemoryDestinationDBWrapper struct {
	dests map[uuid.UUID]*dbt.Destination

	mu sync.RWMutex
}

func NewInMemoryDestinationDBWrapper() *InMemoryDestinationDBWrapper {
	return &InMemoryDestinationDBWrapper{
		dests: make(map[uuid.UUID]*dbt.Destination),
	}
}

func (db *InMemoryDestinationDBWrapper) CreateDestination(dest *dbt.Destination) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.dests[dest.ID]; exists {
		return fmt.Errorf("destination with ID %s already exists", dest.ID)
	}
	destCopy := *dest
	if dest.OwnerID != nil {
		owner := *dest.OwnerID
		destCopy.OwnerID = &owner
	}
	db.dests[dest.ID] = &destCopy
	return nil
}

func (db *InMemoryDestinationDBWrapper) GetDestination(id uuid.UUID) (*dbt.Destination, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	dest, exists := db.dests[id]
	if !exists || dest.IsDeleted {
		return nil, dbt.ErrNotFound
	}
	destCopy := *dest
	if dest.OwnerID != nil {
		owner := *dest.OwnerID
		destCopy.OwnerID = &owner
	}
	return &destCopy, nil
}

func (db *InMemoryDestinationDBWrapper) ClearOwner(id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	dest, exists := db.dests[id]
	if !exists {
		return dbt.ErrNotFound
	}
	dest.OwnerID = nil
	return nil
}

func (db *InMemoryDestinationDBWrapper) MarkDestinationDeleted(id uuid.UUID, expiry time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	dest, exists := db.dests[id]
	if !exists || dest.IsDeleted {
		return dbt.ErrNotFound
	}
	dest.IsDeleted = true
	e := expiry
	dest.DeletedExpiry = &e
	return nil
}

func (db *InMemoryDestinationDBWrapper) RestoreDestination(id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	dest, exists := db.dests[id]
	if !exists {
		return dbt.ErrNotFound
	}
	if !dest.IsDeleted {
		return dbt.ErrNotDeleted
	}
	dest.IsDeleted = false
	dest.DeletedExpiry = nil
	return nil
}

func (db *InMemoryDestinationDBWrapper) DataLoaderGetDestinations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*dbt.Destination, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make(map[uuid.UUID]*dbt.Destination, len(ids))
	for _, id := range ids {
		if dest, exists := db.dests[id]; exists && !dest.IsDeleted {
			destCopy := *dest
			out[id] = &destCopy
		}
	}
	return out, nil
}

// Expirable adapts the wrapper into the reaper's sweep contract.
func (db *InMemoryDestinationDBWrapper) Expirable(hook dbt.PrePurgeHook) dbt.ExpirableStore {
	return &memExpirable{
		kind: "destinations",
		hook: hook,
		sweep: func(ctx context.Context, now time.Time, h dbt.PrePurgeHook) (int, error) {
			db.mu.Lock()
			var ids []uuid.UUID
			for id, d := range db.dests {
				if d.Expired(now) {
					ids = append(ids, id)
				}
			}
			db.mu.Unlock()
			if len(ids) == 0 {
				return 0, nil
			}
			// hook runs unlocked so it can read back through the wrapper
			if h != nil {
				if err := h(ctx, ids); err != nil {
					return 0, err
				}
			}
			db.mu.Lock()
			defer db.mu.Unlock()
			purged := 0
			for _, id := range ids {
				// re-check: a destination restored while the hook ran stays alive
				d, exists := db.dests[id]
				if !exists || !d.Expired(now) {
					continue
				}
				delete(db.dests, id)
				purged++
			}
			return purged, nil
		},
	}
}
