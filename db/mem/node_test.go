package mem_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	dbt "wander/db/db"
	"wander/db/mem"
)

// setupNodeTest creates a fresh wrapper for each test.
func setupNodeTest() *mem.InMemoryTripNodeDBWrapper {
	return mem.NewInMemoryTripNodeDBWrapper()
}

func newLeaf() *dbt.TripNode {
	return &dbt.TripNode{
		ID:            uuid.New(),
		Kind:          dbt.NodeLeaf,
		DestinationID: uuid.New(),
	}
}

func TestSaveTreePreservesChildOrder(t *testing.T) {
	for _, childCnt := range []int{0, 1, 5, 50} {
		t.Run(fmt.Sprintf("children_%d", childCnt), func(t *testing.T) {
			db := setupNodeTest()

			root := &dbt.TripNode{
				ID:    uuid.New(),
				Kind:  dbt.NodeComposite,
				Name:  "Ordered Trip",
				Users: []uuid.UUID{uuid.New()},
			}
			for i := 0; i < childCnt; i++ {
				root.Children = append(root.Children, newLeaf())
			}
			want := make([]uuid.UUID, 0, childCnt)
			for _, child := range root.Children {
				want = append(want, child.ID)
			}

			err := db.SaveTree(root)
			assert.NoError(t, err)

			got, err := db.GetTree(root.ID)
			assert.NoError(t, err)
			assert.Len(t, got.Children, childCnt)
			for i, child := range got.Children {
				assert.Equal(t, want[i], child.ID, "child %d out of order", i)
			}
		})
	}
}

func TestSaveTreeReorderIsAtomicReplacement(t *testing.T) {
	db := setupNodeTest()

	a, b, c := newLeaf(), newLeaf(), newLeaf()
	root := &dbt.TripNode{
		ID:       uuid.New(),
		Kind:     dbt.NodeComposite,
		Name:     "Reorder Trip",
		Children: []*dbt.TripNode{a, b, c},
	}
	assert.NoError(t, db.SaveTree(root))

	// Reverse the child list and save again: the persisted order is fully
	// replaced, no stale edges remain.
	root.Children = []*dbt.TripNode{c, b, a}
	assert.NoError(t, db.SaveTree(root))

	got, err := db.GetTree(root.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Children, 3)
	assert.Equal(t, c.ID, got.Children[0].ID)
	assert.Equal(t, b.ID, got.Children[1].ID)
	assert.Equal(t, a.ID, got.Children[2].ID)
}

func TestSaveTreePropagatesMembership(t *testing.T) {
	db := setupNodeTest()

	owner := uuid.New()
	sub := &dbt.TripNode{
		ID:       uuid.New(),
		Kind:     dbt.NodeComposite,
		Name:     "Sub Trip",
		Children: []*dbt.TripNode{newLeaf()},
	}
	root := &dbt.TripNode{
		ID:       uuid.New(),
		Kind:     dbt.NodeComposite,
		Name:     "Main Trip",
		Users:    []uuid.UUID{owner},
		Children: []*dbt.TripNode{sub},
	}
	assert.NoError(t, db.SaveTree(root))

	got, err := db.GetTree(root.ID)
	assert.NoError(t, err)
	assert.True(t, got.HasUser(owner))
	assert.True(t, got.Children[0].HasUser(owner), "descendant composite should inherit root membership")
}

func TestSaveTreeSkipsSelfLoop(t *testing.T) {
	db := setupNodeTest()

	root := &dbt.TripNode{
		ID:   uuid.New(),
		Kind: dbt.NodeComposite,
		Name: "Loop Trip",
	}
	root.Children = []*dbt.TripNode{root, newLeaf()}
	assert.NoError(t, db.SaveTree(root))

	got, err := db.GetTree(root.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Children, 1, "self-loop edge must not be persisted")
}

func TestGetTreeNestedStructure(t *testing.T) {
	db := setupNodeTest()

	leafA, leafB := newLeaf(), newLeaf()
	sub := &dbt.TripNode{
		ID:       uuid.New(),
		Kind:     dbt.NodeComposite,
		Name:     "Sub",
		Children: []*dbt.TripNode{leafB},
	}
	root := &dbt.TripNode{
		ID:       uuid.New(),
		Kind:     dbt.NodeComposite,
		Name:     "Root",
		Children: []*dbt.TripNode{leafA, sub},
	}
	assert.NoError(t, db.SaveTree(root))

	got, err := db.GetTree(root.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Children, 2)
	assert.Equal(t, leafA.ID, got.Children[0].ID)
	assert.Equal(t, sub.ID, got.Children[1].ID)
	assert.Len(t, got.Children[1].Children, 1)
	assert.Equal(t, leafB.ID, got.Children[1].Children[0].ID)

	// Test: unknown id
	_, err = db.GetTree(uuid.New())
	assert.ErrorIs(t, err, dbt.ErrNotFound)
}

func TestSoftDeleteHidesSubtreeAndRestoreBringsItBack(t *testing.T) {
	db := setupNodeTest()

	leaf := newLeaf()
	sub := &dbt.TripNode{
		ID:       uuid.New(),
		Kind:     dbt.NodeComposite,
		Name:     "Sub",
		Children: []*dbt.TripNode{leaf},
	}
	root := &dbt.TripNode{
		ID:       uuid.New(),
		Kind:     dbt.NodeComposite,
		Name:     "Root",
		Children: []*dbt.TripNode{sub},
	}
	assert.NoError(t, db.SaveTree(root))

	expiry := time.Now().Add(time.Hour)
	assert.NoError(t, db.MarkNodeDeleted(sub.ID, expiry))

	// The deleted node vanishes from its parent's traversal; its own child
	// rows are untouched.
	got, err := db.GetTree(root.ID)
	assert.NoError(t, err)
	assert.Empty(t, got.Children)

	_, err = db.GetTree(sub.ID)
	assert.ErrorIs(t, err, dbt.ErrNotFound)

	// The undo window still sees it.
	node, err := db.GetNode(sub.ID, true)
	assert.NoError(t, err)
	assert.True(t, node.IsDeleted)
	assert.NotNil(t, node.DeletedExpiry)

	// Restore brings the whole subtree back.
	assert.NoError(t, db.RestoreNode(sub.ID))
	got, err = db.GetTree(root.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Children, 1)
	assert.Len(t, got.Children[0].Children, 1)
	assert.Equal(t, leaf.ID, got.Children[0].Children[0].ID)
}

func TestDeleteAndRestoreGuards(t *testing.T) {
	db := setupNodeTest()

	root := &dbt.TripNode{ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Guard Trip"}
	assert.NoError(t, db.SaveTree(root))

	// Test 1: restoring a live node is ErrNotDeleted
	err := db.RestoreNode(root.ID)
	assert.ErrorIs(t, err, dbt.ErrNotDeleted)

	// Test 2: deleting twice is ErrNotFound the second time
	assert.NoError(t, db.MarkNodeDeleted(root.ID, time.Now().Add(time.Hour)))
	err = db.MarkNodeDeleted(root.ID, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, dbt.ErrNotFound)

	// Test 3: restore clears the expiry
	assert.NoError(t, db.RestoreNode(root.ID))
	node, err := db.GetNode(root.ID, false)
	assert.NoError(t, err)
	assert.False(t, node.IsDeleted)
	assert.Nil(t, node.DeletedExpiry)

	// Test 4: unknown ids
	assert.ErrorIs(t, db.MarkNodeDeleted(uuid.New(), time.Now()), dbt.ErrNotFound)
	assert.ErrorIs(t, db.RestoreNode(uuid.New()), dbt.ErrNotFound)
}

func TestGetTreeDetectsCycle(t *testing.T) {
	db := setupNodeTest()

	aID, bID := uuid.New(), uuid.New()

	// One save whose repeated ids leave a -> b and b -> a edge rows behind.
	root := &dbt.TripNode{
		ID: aID, Kind: dbt.NodeComposite, Name: "A",
		Children: []*dbt.TripNode{{
			ID: bID, Kind: dbt.NodeComposite, Name: "B",
			Children: []*dbt.TripNode{{
				ID: aID, Kind: dbt.NodeComposite, Name: "A",
				Children: []*dbt.TripNode{{ID: bID, Kind: dbt.NodeComposite, Name: "B"}},
			}},
		}},
	}
	assert.NoError(t, db.SaveTree(root))

	_, err := db.GetTree(aID)
	assert.ErrorIs(t, err, dbt.ErrCyclicTree)
}

func TestGetTreeDepthCap(t *testing.T) {
	db := setupNodeTest()

	// A chain nested one level past the traversal budget.
	root := &dbt.TripNode{
		ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Level",
		Children: []*dbt.TripNode{newLeaf()},
	}
	for i := 0; i < dbt.MaxTreeDepth+1; i++ {
		root = &dbt.TripNode{
			ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Level",
			Children: []*dbt.TripNode{root},
		}
	}
	assert.NoError(t, db.SaveTree(root))

	_, err := db.GetTree(root.ID)
	assert.ErrorIs(t, err, dbt.ErrTreeTooDeep)
}

func TestSaveTreeReferenceAttachesWithoutRewrite(t *testing.T) {
	db := setupNodeTest()

	subMember := uuid.New()
	subLeaf := newLeaf()
	sub := &dbt.TripNode{
		ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Leg",
		Users:    []uuid.UUID{subMember},
		Children: []*dbt.TripNode{subLeaf},
	}
	assert.NoError(t, db.SaveTree(sub))

	parent := &dbt.TripNode{
		ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Tour",
		Users:    []uuid.UUID{uuid.New()},
		Children: []*dbt.TripNode{{ID: sub.ID, Kind: dbt.NodeComposite, IsRef: true}},
	}
	assert.NoError(t, db.SaveTree(parent))

	got, err := db.GetTree(parent.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Children, 1)
	assert.Equal(t, sub.ID, got.Children[0].ID)
	assert.Equal(t, "Leg", got.Children[0].Name)
	assert.Len(t, got.Children[0].Children, 1)
	assert.Equal(t, subLeaf.ID, got.Children[0].Children[0].ID)

	// The referenced row kept its own name and membership; the parent's
	// users were not pushed into it.
	raw, err := db.GetNode(sub.ID, false)
	assert.NoError(t, err)
	assert.Equal(t, "Leg", raw.Name)
	assert.Equal(t, []uuid.UUID{subMember}, raw.Users)
}

func TestHasParent(t *testing.T) {
	db := setupNodeTest()

	child := newLeaf()
	root := &dbt.TripNode{
		ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Tour",
		Children: []*dbt.TripNode{child},
	}
	assert.NoError(t, db.SaveTree(root))

	has, err := db.HasParent(child.ID)
	assert.NoError(t, err)
	assert.True(t, has)

	has, err = db.HasParent(root.ID)
	assert.NoError(t, err)
	assert.False(t, has)
}

func TestDataLoaderGetChildren(t *testing.T) {
	db := setupNodeTest()

	c1, c2 := newLeaf(), newLeaf()
	root := &dbt.TripNode{
		ID:       uuid.New(),
		Kind:     dbt.NodeComposite,
		Name:     "Loader Trip",
		Children: []*dbt.TripNode{c1, c2},
	}
	assert.NoError(t, db.SaveTree(root))

	out, err := db.DataLoaderGetChildren(context.Background(), []uuid.UUID{root.ID, uuid.New()})
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c1.ID, c2.ID}, out[root.ID])
	assert.Len(t, out, 1)
}

func TestNodeExpirableSweep(t *testing.T) {
	db := setupNodeTest()
	now := time.Now()

	expired := &dbt.TripNode{ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Expired"}
	pending := &dbt.TripNode{ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Pending"}
	assert.NoError(t, db.SaveTree(expired))
	assert.NoError(t, db.SaveTree(pending))
	assert.NoError(t, db.MarkNodeDeleted(expired.ID, now.Add(-time.Minute)))
	assert.NoError(t, db.MarkNodeDeleted(pending.ID, now.Add(time.Minute)))

	var hookIDs []uuid.UUID
	store := db.Expirable(func(ctx context.Context, ids []uuid.UUID) error {
		hookIDs = ids
		return nil
	})
	assert.Equal(t, "trip_nodes", store.Kind())

	purged, err := store.PurgeExpired(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.Equal(t, []uuid.UUID{expired.ID}, hookIDs)

	// The expired node is gone for good, the pending one is still
	// restorable.
	_, err = db.GetNode(expired.ID, true)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
	assert.NoError(t, db.RestoreNode(pending.ID))
}
