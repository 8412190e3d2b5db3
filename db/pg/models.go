package pg

import (
	"time"

	"github.com/google/uuid"
)

type TripNodeModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Kind          int        `gorm:"not null"`
	Name          string     `gorm:"size:255"`
	DestinationID *uuid.UUID `gorm:"type:uuid"`
	ArrivalDate   *time.Time
	ArrivalTime   *int
	DepartureDate *time.Time
	DepartureTime *int
	IsDeleted     bool `gorm:"not null;default:false;index"`
	DeletedExpiry *time.Time
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TripNodeModel) TableName() string {
	return "trip_nodes"
}

// TripNodeChildModel is one ordered parent/child edge. The tree is stored
// flat; child_index is the child's position within its parent.
type TripNodeChildModel struct {
	ParentID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChildID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChildIndex int       `gorm:"not null"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TripNodeChildModel) TableName() string {
	return "trip_node_children"
}

type TripNodeUserModel struct {
	NodeID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TripNodeUserModel) TableName() string {
	return "trip_node_users"
}

type UserRoleModel struct {
	NodeID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role   string    `gorm:"size:32;not null"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserRoleModel) TableName() string {
	return "user_roles"
}

type UserModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"size:255;not null"`
	IsAdmin       bool      `gorm:"not null;default:false"`
	IsDeleted     bool      `gorm:"not null;default:false;index"`
	DeletedExpiry *time.Time
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string {
	return "users"
}

type DestinationModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name          string     `gorm:"size:255;not null"`
	IsPublic      bool       `gorm:"not null;default:false"`
	OwnerID       *uuid.UUID `gorm:"type:uuid"`
	IsDeleted     bool       `gorm:"not null;default:false;index"`
	DeletedExpiry *time.Time
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DestinationModel) TableName() string {
	return "destinations"
}

type PhotoModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID       uuid.UUID `gorm:"type:uuid;not null;index"`
	FilePath      string    `gorm:"size:1024;not null"`
	IsDeleted     bool      `gorm:"not null;default:false;index"`
	DeletedExpiry *time.Time
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PhotoModel) TableName() string {
	return "photos"
}
