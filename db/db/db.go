package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by every wrapper when the requested row does not
// exist (or is soft-deleted and the call did not ask for deleted rows).
var ErrNotFound = errors.New("not found")

// ErrNotDeleted is returned by Restore calls on an entity that is not
// currently soft-deleted.
var ErrNotDeleted = errors.New("entity is not deleted")

// ErrCyclicTree is returned by GetTree when the parent/child rows form a
// cycle. The rows are corrupt; traversal stops instead of recursing forever.
var ErrCyclicTree = errors.New("cyclic trip tree")

// ErrTreeTooDeep is returned when traversal exceeds MaxTreeDepth.
var ErrTreeTooDeep = errors.New("trip tree exceeds depth limit")

// MaxTreeDepth bounds GetTree recursion. A legitimate trip never nests this
// far; hitting the limit is treated like a cycle.
const MaxTreeDepth = 64

// DeleteGracePeriod is how long a soft-deleted entity stays restorable
// before the reaper may purge it.
const DeleteGracePeriod = time.Hour

// TripNodeDBWrapper is the persistence contract for the trip tree.
type TripNodeDBWrapper interface {
	// SaveTree persists root and its entire subtree. Root's membership list
	// is propagated into every descendant composite, and each composite's
	// child ordering is written atomically: a reader never observes a
	// partially reordered child list. Children with IsRef set get a parent
	// edge only; their rows are left alone.
	SaveTree(root *TripNode) error

	// GetTree loads the node and recursively resolves its children in
	// persisted child_index order, skipping soft-deleted nodes and
	// self-loops. Returns ErrNotFound if the node is absent or deleted,
	// ErrCyclicTree / ErrTreeTooDeep on corrupt parent rows.
	GetTree(id uuid.UUID) (*TripNode, error)

	// GetNode loads a single node row without children. includeDeleted
	// widens the lookup to soft-deleted rows (the undo window).
	GetNode(id uuid.UUID, includeDeleted bool) (*TripNode, error)

	// MarkNodeDeleted soft-deletes one node (not its subtree) with the
	// given expiry.
	MarkNodeDeleted(id uuid.UUID, expiry time.Time) error

	// RestoreNode clears the soft-delete state of one node. Returns
	// ErrNotDeleted if the node is live.
	RestoreNode(id uuid.UUID) error

	// HasParent reports whether any child edge points at the node.
	HasParent(id uuid.UUID) (bool, error)

	// DataLoaderGetChildren batch-resolves ordered child id lists for many
	// parents at once.
	DataLoaderGetChildren(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
}

// UserDBWrapper is the persistence contract for user rows.
type UserDBWrapper interface {
	CreateUser(user *User) error
	GetUser(id uuid.UUID) (*User, error)
	MarkUserDeleted(id uuid.UUID, expiry time.Time) error
	RestoreUser(id uuid.UUID) error

	// Photos owned by a user, purged with them.
	CreatePhoto(photo *Photo) error
	GetUserPhotos(userID uuid.UUID) ([]Photo, error)

	DataLoaderGetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error)
}

// DestinationDBWrapper is the persistence contract for destination rows.
type DestinationDBWrapper interface {
	CreateDestination(dest *Destination) error
	GetDestination(id uuid.UUID) (*Destination, error)

	// ClearOwner releases a destination's private claim. Used by the
	// ownership guard when a claimed public destination is adopted into
	// another user's trip.
	ClearOwner(id uuid.UUID) error

	MarkDestinationDeleted(id uuid.UUID, expiry time.Time) error
	RestoreDestination(id uuid.UUID) error

	DataLoaderGetDestinations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Destination, error)
}
