// Package mem holds in-memory implementations of the db wrappers. They back
// unit tests and the --store mem development mode, so the API runs without
// PostgreSQL.
package mem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	dbt "wander/db/db"
)

// InMemoryTripNodeDBWrapper is a mutex-guarded, map-backed implementation of
// dbt.TripNodeDBWrapper. Nodes live flat in an arena keyed by id; structure
// and ordering are held as ordered child-id slices per parent, mirroring the
// trip_node_children rows of the Postgres implementation.
type InMemoryTripNodeDBWrapper struct {
	nodes map[uuid.UUID]*dbt.TripNode // stored without Children resolved
	edges map[uuid.UUID][]uuid.UUID   // ordered child ids per parent

	mu sync.RWMutex
}

func NewInMemoryTripNodeDBWrapper() *InMemoryTripNodeDBWrapper {
	return &InMemoryTripNodeDBWrapper{
		nodes: make(map[uuid.UUID]*dbt.TripNode),
		edges: make(map[uuid.UUID][]uuid.UUID),
	}
}

// SaveTree persists root and its subtree. The lock is held for the whole
// walk, so the child-order swap is atomic to readers.
func (db *InMemoryTripNodeDBWrapper) SaveTree(root *dbt.TripNode) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.saveSubtree(root, nil)
	return nil
}

func (db *InMemoryTripNodeDBWrapper) saveSubtree(node *dbt.TripNode, inherited []uuid.UUID) {
	if node.IsRef {
		// referenced sub trip: the parent edge is all that gets written
		return
	}
	if node.Kind == dbt.NodeComposite {
		node.Users = mergeUserIDs(node.Users, inherited)
	}

	stored := *node
	stored.Children = nil
	stored.Users = append([]uuid.UUID(nil), node.Users...)
	stored.Roles = append([]dbt.UserRole(nil), node.Roles...)
	db.nodes[node.ID] = &stored

	if node.Kind == dbt.NodeLeaf {
		return
	}

	var childIDs []uuid.UUID
	for _, child := range node.Children {
		if child.ID == node.ID {
			continue // self-loop, never persisted
		}
		db.saveSubtree(child, node.Users)
		childIDs = append(childIDs, child.ID)
	}
	db.edges[node.ID] = childIDs
}

func (db *InMemoryTripNodeDBWrapper) GetTree(id uuid.UUID) (*dbt.TripNode, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	visited := make(map[uuid.UUID]bool)
	return db.fetchSubtree(id, visited, 0)
}

func (db *InMemoryTripNodeDBWrapper) fetchSubtree(id uuid.UUID, visited map[uuid.UUID]bool, depth int) (*dbt.TripNode, error) {
	if depth > dbt.MaxTreeDepth {
		return nil, dbt.ErrTreeTooDeep
	}
	if visited[id] {
		return nil, dbt.ErrCyclicTree
	}
	visited[id] = true

	stored, exists := db.nodes[id]
	if !exists || stored.IsDeleted {
		return nil, dbt.ErrNotFound
	}

	node := copyNode(stored)
	if node.Kind == dbt.NodeLeaf {
		return node, nil
	}

	for _, childID := range db.edges[id] {
		if childID == id {
			continue
		}
		child, err := db.fetchSubtree(childID, visited, depth+1)
		if err != nil {
			if err == dbt.ErrNotFound {
				// soft-deleted child stays hidden from the tree
				continue
			}
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func (db *InMemoryTripNodeDBWrapper) GetNode(id uuid.UUID, includeDeleted bool) (*dbt.TripNode, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, exists := db.nodes[id]
	if !exists {
		return nil, dbt.ErrNotFound
	}
	if stored.IsDeleted && !includeDeleted {
		return nil, dbt.ErrNotFound
	}
	return copyNode(stored), nil
}

func (db *InMemoryTripNodeDBWrapper) MarkNodeDeleted(id uuid.UUID, expiry time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, exists := db.nodes[id]
	if !exists || stored.IsDeleted {
		return dbt.ErrNotFound
	}
	stored.IsDeleted = true
	e := expiry
	stored.DeletedExpiry = &e
	return nil
}

func (db *InMemoryTripNodeDBWrapper) RestoreNode(id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, exists := db.nodes[id]
	if !exists {
		return dbt.ErrNotFound
	}
	if !stored.IsDeleted {
		return dbt.ErrNotDeleted
	}
	stored.IsDeleted = false
	stored.DeletedExpiry = nil
	return nil
}

func (db *InMemoryTripNodeDBWrapper) HasParent(id uuid.UUID) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for pid, childIDs := range db.edges {
		if pid == id {
			continue
		}
		for _, cid := range childIDs {
			if cid == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (db *InMemoryTripNodeDBWrapper) DataLoaderGetChildren(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make(map[uuid.UUID][]uuid.UUID, len(parentIDs))
	for _, pid := range parentIDs {
		if childIDs, exists := db.edges[pid]; exists {
			out[pid] = append([]uuid.UUID(nil), childIDs...)
		}
	}
	return out, nil
}

// Expirable adapts the wrapper into the reaper's sweep contract.
func (db *InMemoryTripNodeDBWrapper) Expirable(hook dbt.PrePurgeHook) dbt.ExpirableStore {
	return &memExpirable{
		kind: "trip_nodes",
		hook: hook,
		sweep: func(ctx context.Context, now time.Time, h dbt.PrePurgeHook) (int, error) {
			db.mu.Lock()
			var ids []uuid.UUID
			for id, n := range db.nodes {
				if n.Expired(now) {
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
				// re-check: a node restored while the hook ran stays alive
				n, exists := db.nodes[id]
				if !exists || !n.Expired(now) {
					continue
				}
				delete(db.nodes, id)
				delete(db.edges, id)
				for pid, childIDs := range db.edges {
					db.edges[pid] = removeID(childIDs, id)
				}
				purged++
			}
			return purged, nil
		},
	}
}

// memExpirable is the shared sweep adapter for all in-memory kinds.
type memExpirable struct {
	kind  string
	hook  dbt.PrePurgeHook
	sweep func(ctx context.Context, now time.Time, hook dbt.PrePurgeHook) (int, error)
}

func (s *memExpirable) Kind() string {
	return s.kind
}

func (s *memExpirable) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return s.sweep(ctx, now, s.hook)
}

func copyNode(stored *dbt.TripNode) *dbt.TripNode {
	node := *stored
	node.Users = append([]uuid.UUID(nil), stored.Users...)
	node.Roles = append([]dbt.UserRole(nil), stored.Roles...)
	node.Children = nil
	return &node
}

func mergeUserIDs(base, inherited []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(base)+len(inherited))
	out := make([]uuid.UUID, 0, len(base)+len(inherited))
	for _, id := range base {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range inherited {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func removeID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
