package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PrePurgeHook runs inside the purge transaction, before the expired rows
// are removed. It receives the ids about to be purged so entity-specific
// cleanup (e.g. deleting a user's photo files) can happen first. Returning
// an error aborts the purge for this cycle.
type PrePurgeHook func(ctx context.Context, ids []uuid.UUID) error

// ExpirableStore is one entity kind the reaper can sweep. Implementations
// must evaluate the expiry predicate and delete the matching rows in a
// single transaction, so a restore committed after the sweep started is
// never destroyed.
type ExpirableStore interface {
	// Kind names the entity kind for logging.
	Kind() string

	// PurgeExpired permanently removes every row whose grace period has
	// elapsed at now (boundary inclusive) and returns how many were
	// removed. The registered PrePurgeHook, if any, runs first.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
