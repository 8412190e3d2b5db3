package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbt "wander/db/db"
)

// GORMExpirableStore sweeps one entity kind's expired soft-deletes. The
// select and the delete run in one transaction with the candidate rows
// locked, so a restore that commits first is never purged.
type GORMExpirableStore[T any] struct {
	db   *gorm.DB
	kind string
	hook dbt.PrePurgeHook

	// AfterPurge runs in the same transaction after the rows are removed,
	// for dependent-row cleanup (edges, membership, roles).
	AfterPurge func(tx *gorm.DB, ids []uuid.UUID) error
}

func NewGORMExpirableStore[T any](db *gorm.DB, kind string, hook dbt.PrePurgeHook) *GORMExpirableStore[T] {
	return &GORMExpirableStore[T]{db: db, kind: kind, hook: hook}
}

func (s *GORMExpirableStore[T]) Kind() string {
	return s.kind
}

// PurgeExpired removes every row with is_deleted and deleted_expiry <= now.
// The boundary is inclusive.
func (s *GORMExpirableStore[T]) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	purged := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Model(new(T)).
			Where("is_deleted = ? AND deleted_expiry <= ?", true, now).
			Pluck("id", &ids)
		if result.Error != nil {
			return fmt.Errorf("failed to select expired %s: %w", s.kind, result.Error)
		}
		if len(ids) == 0 {
			return nil
		}

		if s.hook != nil {
			if err := s.hook(ctx, ids); err != nil {
				return fmt.Errorf("pre-purge hook for %s: %w", s.kind, err)
			}
		}

		// re-check the predicate inside the delete: a row restored between
		// the select and here stays alive
		result = tx.Where("id IN ? AND is_deleted = ? AND deleted_expiry <= ?", ids, true, now).
			Delete(new(T))
		if result.Error != nil {
			return fmt.Errorf("failed to purge expired %s: %w", s.kind, result.Error)
		}
		purged = int(result.RowsAffected)

		if s.AfterPurge != nil {
			return s.AfterPurge(tx, ids)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// NewTripNodeExpirableStore builds the sweep for trip nodes, cleaning the
// node's edges, membership and role rows alongside the node itself.
func NewTripNodeExpirableStore(db *gorm.DB) *GORMExpirableStore[TripNodeModel] {
	s := NewGORMExpirableStore[TripNodeModel](db, "trip_nodes", nil)
	s.AfterPurge = func(tx *gorm.DB, ids []uuid.UUID) error {
		if err := tx.Where("parent_id IN ? OR child_id IN ?", ids, ids).Delete(&TripNodeChildModel{}).Error; err != nil {
			return fmt.Errorf("failed to purge child edges: %w", err)
		}
		if err := tx.Where("node_id IN ?", ids).Delete(&TripNodeUserModel{}).Error; err != nil {
			return fmt.Errorf("failed to purge membership rows: %w", err)
		}
		if err := tx.Where("node_id IN ?", ids).Delete(&UserRoleModel{}).Error; err != nil {
			return fmt.Errorf("failed to purge role rows: %w", err)
		}
		return nil
	}
	return s
}
