package mem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	dbt "wander/db/db"
)

// InMemoryUserDBWrapper is a map-backed implementation of dbt.UserDBWrapper.
type InMemoryUserDBWrapper struct {
	users  map[uuid.UUID]*dbt.User
	photos map[uuid.UUID]*dbt.Photo

	mu sync.RWMutex
}

func NewInMemoryUserDBWrapper() *InMemoryUserDBWrapper {
	return &InMemoryUserDBWrapper{
		users:  make(map[uuid.UUID]*dbt.User),
		photos: make(map[uuid.UUID]*dbt.Photo),
	}
}

func (db *InMemoryUserDBWrapper) CreateUser(user *dbt.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.users[user.ID]; exists {
		return fmt.Errorf("user with ID %s already exists", user.ID)
	}
	userCopy := *user
	db.users[user.ID] = &userCopy
	return nil
}

func (db *InMemoryUserDBWrapper) GetUser(id uuid.UUID) (*dbt.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	user, exists := db.users[id]
	if !exists || user.IsDeleted {
		return nil, dbt.ErrNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (db *InMemoryUserDBWrapper) MarkUserDeleted(id uuid.UUID, expiry time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, exists := db.users[id]
	if !exists || user.IsDeleted {
		return dbt.ErrNotFound
	}
	user.IsDeleted = true
	e := expiry
	user.DeletedExpiry = &e
	return nil
}

func (db *InMemoryUserDBWrapper) RestoreUser(id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, exists := db.users[id]
	if !exists {
		return dbt.ErrNotFound
	}
	if !user.IsDeleted {
		return dbt.ErrNotDeleted
	}
	user.IsDeleted = false
	user.DeletedExpiry = nil
	return nil
}

func (db *InMemoryUserDBWrapper) CreatePhoto(photo *dbt.Photo) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.photos[photo.ID]; exists {
		return fmt.Errorf("photo with ID %s already exists", photo.ID)
	}
	photoCopy := *photo
	db.photos[photo.ID] = &photoCopy
	return nil
}

func (db *InMemoryUserDBWrapper) GetUserPhotos(userID uuid.UUID) ([]dbt.Photo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var photos []dbt.Photo
	for _, p := range db.photos {
		if p.OwnerID == userID {
			photos = append(photos, *p)
		}
	}
	return photos, nil
}

func (db *InMemoryUserDBWrapper) DataLoaderGetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*dbt.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make(map[uuid.UUID]*dbt.User, len(ids))
	for _, id := range ids {
		if user, exists := db.users[id]; exists && !user.IsDeleted {
			userCopy := *user
			out[id] = &userCopy
		}
	}
	return out, nil
}

// Expirable adapts the wrapper into the reaper's sweep contract. The hook
// receives the user ids about to be purged; registering the photo-file
// cleanup here mirrors production wiring.
func (db *InMemoryUserDBWrapper) Expirable(hook dbt.PrePurgeHook) dbt.ExpirableStore {
	return &memExpirable{
		kind: "users",
		hook: hook,
		sweep: func(ctx context.Context, now time.Time, h dbt.PrePurgeHook) (int, error) {
			db.mu.Lock()
			var ids []uuid.UUID
			for id, u := range db.users {
				if u.Expired(now) {
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
				// re-check: a user restored while the hook ran stays alive
				u, exists := db.users[id]
				if !exists || !u.Expired(now) {
					continue
				}
				delete(db.users, id)
				for pid, p := range db.photos {
					if p.OwnerID == id {
						delete(db.photos, pid)
					}
				}
				purged++
			}
			return purged, nil
		},
	}
}
