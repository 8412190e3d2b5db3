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

// GORMUserDBWrapper is a GORM-based PostgreSQL implementation of dbt.UserDBWrapper.
type GORMUserDBWrapper struct {
	db *gorm.DB
}

func NewGORMUserDBWrapper(db *gorm.DB) dbt.UserDBWrapper {
	return &GORMUserDBWrapper{
		db: db,
	}
}

func (pgdb *GORMUserDBWrapper) CreateUser(user *dbt.User) error {
	model := UserModel{
		ID:            user.ID,
		Name:          user.Name,
		IsAdmin:       user.IsAdmin,
		IsDeleted:     user.IsDeleted,
		DeletedExpiry: user.DeletedExpiry,
	}
	result := pgdb.db.Create(&model)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "duplicate key value violates unique constraint") {
			return fmt.Errorf("user with ID %s already exists: %w", user.ID, result.Error)
		}
		return fmt.Errorf("failed to create user: %w", result.Error)
	}
	return nil
}

func (pgdb *GORMUserDBWrapper) GetUser(id uuid.UUID) (*dbt.User, error) {
	var model UserModel
	result := pgdb.db.First(&model, "id = ? AND is_deleted = ?", id, false)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, dbt.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, result.Error)
	}
	return userModelToUser(&model), nil
}

func (pgdb *GORMUserDBWrapper) MarkUserDeleted(id uuid.UUID, expiry time.Time) error {
	result := pgdb.db.Model(&UserModel{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_expiry": expiry})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return dbt.ErrNotFound
	}
	return nil
}

func (pgdb *GORMUserDBWrapper) RestoreUser(id uuid.UUID) error {
	var model UserModel
	result := pgdb.db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return dbt.ErrNotFound
		}
		return fmt.Errorf("failed to get user %s: %w", id, result.Error)
	}
	if !model.IsDeleted {
		return dbt.ErrNotDeleted
	}
	result = pgdb.db.Model(&UserModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_deleted": false, "deleted_expiry": nil})
	if result.Error != nil {
		return fmt.Errorf("failed to restore user %s: %w", id, result.Error)
	}
	return nil
}

func (pgdb *GORMUserDBWrapper) CreatePhoto(photo *dbt.Photo) error {
	model := PhotoModel{
		ID:            photo.ID,
		OwnerID:       photo.OwnerID,
		FilePath:      photo.FilePath,
		IsDeleted:     photo.IsDeleted,
		DeletedExpiry: photo.DeletedExpiry,
	}
	if err := pgdb.db.Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

func (pgdb *GORMUserDBWrapper) GetUserPhotos(userID uuid.UUID) ([]dbt.Photo, error) {
	var models []PhotoModel
	result := pgdb.db.Where("owner_id = ?", userID).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get photos for user %s: %w", userID, result.Error)
	}
	var photos []dbt.Photo
	for _, m := range models {
		photos = append(photos, dbt.Photo{
			ID:       m.ID,
			OwnerID:  m.OwnerID,
			FilePath: m.FilePath,
			Expirable: dbt.Expirable{
				IsDeleted:     m.IsDeleted,
				DeletedExpiry: m.DeletedExpiry,
			},
		})
	}
	return photos, nil
}

func (pgdb *GORMUserDBWrapper) DataLoaderGetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*dbt.User, error) {
	var models []UserModel
	result := pgdb.db.WithContext(ctx).Where("id IN ? AND is_deleted = ?", ids, false).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to batch load users: %w", result.Error)
	}
	out := make(map[uuid.UUID]*dbt.User, len(models))
	for i := range models {
		out[models[i].ID] = userModelToUser(&models[i])
	}
	return out, nil
}

func userModelToUser(m *UserModel) *dbt.User {
	return &dbt.User{
		ID:      m.ID,
		Name:    m.Name,
		IsAdmin: m.IsAdmin,
		Expirable: dbt.Expirable{
			IsDeleted:     m.IsDeleted,
			DeletedExpiry: m.DeletedExpiry,
		},
	}
}
