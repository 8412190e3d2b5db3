package reaper

import (
	"context"
	"log"
	"time"

	dbt "wander/db/db"
)

const (
	// DefaultInterval is how often the sweep runs once started.
	DefaultInterval = 24 * time.Hour
	// DefaultBootDelay holds the first sweep back so a restarting service
	// is serving traffic before it starts purging.
	DefaultBootDelay = time.Minute
)

// Reaper permanently purges soft-deleted entities whose undo window has
// closed. One reaper sweeps every registered store on a shared ticker, so
// adding an entity kind is one Register call, not a new background task.
type Reaper struct {
	Interval  time.Duration
	BootDelay time.Duration

	// Now is the clock expiries are compared against. Injectable for tests.
	Now func() time.Time

	stores []dbt.ExpirableStore
}

func New() *Reaper {
	return &Reaper{
		Interval:  DefaultInterval,
		BootDelay: DefaultBootDelay,
		Now:       time.Now,
	}
}

// Register adds a store to the sweep rotation. Not safe to call after Run
// has started.
func (r *Reaper) Register(store dbt.ExpirableStore) {
	r.stores = append(r.stores, store)
}

// SweepOnce purges every registered store once against the current clock.
// A failing store is logged and skipped; the rest of the rotation still
// runs. Returns the total number of purged rows.
func (r *Reaper) SweepOnce(ctx context.Context) int {
	now := r.Now()
	total := 0
	for _, store := range r.stores {
		purged, err := store.PurgeExpired(ctx, now)
		if err != nil {
			log.Printf("reaper: purge %s: %v", store.Kind(), err)
			continue
		}
		if purged > 0 {
			log.Printf("reaper: purged %d expired %s", purged, store.Kind())
		}
		total += purged
	}
	return total
}

// Run blocks, sweeping on the configured interval after the boot delay,
// until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(r.BootDelay):
	}

	r.SweepOnce(ctx)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepOnce(ctx)
		}
	}
}
