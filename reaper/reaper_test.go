package reaper_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbt "wander/db/db"
	"wander/db/mem"
	"wander/reaper"
)

// failingStore always errors, to prove one bad store never stops the
// rotation.
type failingStore struct{}

func (failingStore) Kind() string { return "broken" }
func (failingStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, errors.New("boom")
}

func TestSweepOncePurgesOnlyExpired(t *testing.T) {
	nodes := mem.NewInMemoryTripNodeDBWrapper()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	atBoundary := &dbt.TripNode{ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Boundary"}
	justInside := &dbt.TripNode{ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Inside"}
	live := &dbt.TripNode{ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Live"}
	for _, n := range []*dbt.TripNode{atBoundary, justInside, live} {
		require.NoError(t, nodes.SaveTree(n))
	}

	// Expiry exactly at now is purged; a microsecond later is not.
	require.NoError(t, nodes.MarkNodeDeleted(atBoundary.ID, now))
	require.NoError(t, nodes.MarkNodeDeleted(justInside.ID, now.Add(time.Microsecond)))

	r := reaper.New()
	r.Now = func() time.Time { return now }
	r.Register(nodes.Expirable(nil))

	purged := r.SweepOnce(context.Background())
	assert.Equal(t, 1, purged)

	_, err := nodes.GetNode(atBoundary.ID, true)
	assert.ErrorIs(t, err, dbt.ErrNotFound)

	// Still restorable.
	assert.NoError(t, nodes.RestoreNode(justInside.ID))

	// Never touched.
	_, err = nodes.GetNode(live.ID, false)
	assert.NoError(t, err)
}

func TestSweepOnceContinuesPastFailingStore(t *testing.T) {
	nodes := mem.NewInMemoryTripNodeDBWrapper()
	now := time.Now()

	expired := &dbt.TripNode{ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Expired"}
	require.NoError(t, nodes.SaveTree(expired))
	require.NoError(t, nodes.MarkNodeDeleted(expired.ID, now.Add(-time.Minute)))

	r := reaper.New()
	r.Register(failingStore{})
	r.Register(nodes.Expirable(nil))

	purged := r.SweepOnce(context.Background())
	assert.Equal(t, 1, purged, "healthy stores still sweep after a failure")
}

func TestHookFailureLeavesRowsAlive(t *testing.T) {
	users := mem.NewInMemoryUserDBWrapper()
	now := time.Now()

	user := &dbt.User{ID: uuid.New(), Name: "Doomed"}
	require.NoError(t, users.CreateUser(user))
	require.NoError(t, users.MarkUserDeleted(user.ID, now.Add(-time.Minute)))

	r := reaper.New()
	r.Register(users.Expirable(func(ctx context.Context, ids []uuid.UUID) error {
		return errors.New("cleanup failed")
	}))

	purged := r.SweepOnce(context.Background())
	assert.Equal(t, 0, purged)

	// The row survives for the next sweep.
	assert.NoError(t, users.RestoreUser(user.ID))
}

func TestPhotoCleanupHookRemovesFiles(t *testing.T) {
	users := mem.NewInMemoryUserDBWrapper()
	now := time.Now()

	user := &dbt.User{ID: uuid.New(), Name: "Leaving"}
	require.NoError(t, users.CreateUser(user))

	dir := t.TempDir()
	path := filepath.Join(dir, "avatar.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o644))

	// Stored relative to the photo directory, resolved by the hook.
	require.NoError(t, users.CreatePhoto(&dbt.Photo{
		ID:       uuid.New(),
		OwnerID:  user.ID,
		FilePath: "avatar.jpg",
	}))

	// A record whose file is already gone must not fail the purge.
	require.NoError(t, users.CreatePhoto(&dbt.Photo{
		ID:       uuid.New(),
		OwnerID:  user.ID,
		FilePath: "missing.jpg",
	}))

	require.NoError(t, users.MarkUserDeleted(user.ID, now.Add(-time.Minute)))

	r := reaper.New()
	r.Register(users.Expirable(reaper.PhotoCleanupHook(users, dir)))

	purged := r.SweepOnce(context.Background())
	assert.Equal(t, 1, purged)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "photo file should be removed from disk")

	_, err = users.GetUser(user.ID)
	assert.ErrorIs(t, err, dbt.ErrNotFound)
}

func TestRunSweepsAfterBootDelayAndStopsOnCancel(t *testing.T) {
	nodes := mem.NewInMemoryTripNodeDBWrapper()

	expired := &dbt.TripNode{ID: uuid.New(), Kind: dbt.NodeComposite, Name: "Expired"}
	require.NoError(t, nodes.SaveTree(expired))
	require.NoError(t, nodes.MarkNodeDeleted(expired.ID, time.Now().Add(-time.Minute)))

	r := reaper.New()
	r.BootDelay = 10 * time.Millisecond
	r.Interval = time.Hour
	r.Register(nodes.Expirable(nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := nodes.GetNode(expired.ID, true)
		return errors.Is(err, dbt.ErrNotFound)
	}, time.Second, 10*time.Millisecond, "boot sweep should purge the expired node")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
