package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbt "wander/db/db"
)

// GORMDestinationDBWrapper is a GORM-based PostgreSQL implementation of
// dbt.DestinationDBWrapper.
type GORMDestinationDBWrapper struct {
	db *gorm.DB
}

func NewGORMDestinationDBWrapper(db *gorm.DB) dbt.DestinationDBWrapper {
	return &GORMDestinationDBWrapper{
		db: db,
	}
}

func (pgdb *GORMDestinationDBWrapper) CreateDestination(dest *dbt.Destination) error {
	model := DestinationModel{
		ID:            dest.ID,
		Name:          dest.Name,
		IsPublic:      dest.IsPublic,
		OwnerID:       dest.OwnerID,
		IsDeleted:     dest.IsDeleted,
		DeletedExpiry: dest.DeletedExpiry,
	}
	result := pgdb.db.Create(&model)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "duplicate key value violates unique constraint") {
			return fmt.Errorf("destination with ID %s already exists: %w", dest.ID, result.Error)
		}
		return fmt.Errorf("failed to create destination: %w", result.Error)
	}
	return nil
}

func (pgdb *GORMDestinationDBWrapper) GetDestination(id uuid.UUID) (*dbt.Destination, error) {
	var model DestinationModel
	result := pgdb.db.First(&model, "id = ? AND is_deleted = ?", id, false)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, dbt.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get destination %s: %w", id, result.Error)
	}
	return destModelToDest(&model), nil
}

// ClearOwner releases the private claim on a destination.
func (pgdb *GORMDestinationDBWrapper) ClearOwner(id uuid.UUID) error {
	result := pgdb.db.Model(&DestinationModel{}).Where("id = ?", id).
		Update("owner_id", nil)
	if result.Error != nil {
		return fmt.Errorf("failed to clear owner of destination %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return dbt.ErrNotFound
	}
	return nil
}

func (pgdb *GORMDestinationDBWrapper) MarkDestinationDeleted(id uuid.UUID, expiry time.Time) error {
	result := pgdb.db.Model(&DestinationModel{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_expiry": expiry})
	if result.Error != nil {
		return fmt.Errorf("failed to delete destination %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return dbt.ErrNotFound
	}
	return nil
}

func (pgdb *GORMDestinationDBWrapper) RestoreDestination(id uuid.UUID) error {
	var model DestinationModel
	result := pgdb.db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return dbt.ErrNotFound
		}
		return fmt.Errorf("failed to get destination %s: %w", id, result.Error)
	}
	if !model.IsDeleted {
		return dbt.ErrNotDeleted
	}
	result = pgdb.db.Model(&DestinationModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_deleted": false, "deleted_expiry": nil})
	if result.Error != nil {
		return fmt.Errorf("failed to restore destination %s: %w", id, result.Error)
	}
	return nil
}

func (pgdb *GORMDestinationDBWrapper) DataLoaderGetDestinations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*dbt.Destination, error) {
	var models []DestinationModel
	result := pgdb.db.WithContext(ctx).Where("id IN ? AND is_deleted = ?", ids, false).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to batch load destinations: %w", result.Error)
	}
	out := make(map[uuid.UUID]*dbt.Destination, len(models))
	for i := range models {
		out[models[i].ID] = destModelToDest(&models[i])
	}
	return out, nil
}

func destModelToDest(m *DestinationModel) *dbt.Destination {
	return &dbt.Destination{
		ID:       m.ID,
		Name:     m.Name,
		IsPublic: m.IsPublic,
		OwnerID:  m.OwnerID,
		Expirable: dbt.Expirable{
			IsDeleted:     m.IsDeleted,
			DeletedExpiry: m.DeletedExpiry,
		},
	}
}
