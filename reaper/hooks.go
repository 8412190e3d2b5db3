package reaper

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	dbt "wander/db/db"
)

// PhotoCleanupHook returns the pre-purge hook for user rows: before a user
// is permanently removed, the files behind their photos are deleted from
// disk. Relative photo paths resolve against dir, the configured photo
// directory. An already-missing file is fine; any other filesystem failure
// aborts the purge so the rows survive until cleanup can succeed.
func PhotoCleanupHook(users dbt.UserDBWrapper, dir string) dbt.PrePurgeHook {
	return func(ctx context.Context, ids []uuid.UUID) error {
		for _, id := range ids {
			photos, err := users.GetUserPhotos(id)
			if err != nil {
				return fmt.Errorf("list photos of user %s: %w", id, err)
			}
			for _, photo := range photos {
				path := photo.FilePath
				if !filepath.IsAbs(path) {
					path = filepath.Join(dir, path)
				}
				if err := os.Remove(path); err != nil {
					if os.IsNotExist(err) {
						log.Printf("reaper: photo file already gone: %s", path)
						continue
					}
					return fmt.Errorf("remove photo file %s: %w", path, err)
				}
			}
		}
		return nil
	}
}
