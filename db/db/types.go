package db

import (
	"time"

	"github.com/google/uuid"
)

// RoleType is a user's authority level on one trip composite.
type RoleType string

const (
	RoleTripOwner   RoleType = "TRIP_OWNER"
	RoleTripManager RoleType = "TRIP_MANAGER"
	RoleTripMember  RoleType = "TRIP_MEMBER"
)

// rank orders roles for precedence comparison. Higher wins.
func (r RoleType) rank() int {
	switch r {
	case RoleTripOwner:
		return 3
	case RoleTripManager:
		return 2
	case RoleTripMember:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants at least the authority of other.
func (r RoleType) AtLeast(other RoleType) bool {
	return r.rank() >= other.rank()
}

// Valid reports whether r is one of the three known role values.
func (r RoleType) Valid() bool {
	return r.rank() > 0
}

// NodeKind discriminates the two trip node variants.
type NodeKind int

const (
	NodeComposite NodeKind = iota // named container of ordered children
	NodeLeaf                      // single destination visit
)

// Expirable is the soft-delete state shared by every entity the reaper
// manages. A deleted entity stays restorable until DeletedExpiry passes.
type Expirable struct {
	IsDeleted     bool
	DeletedExpiry *time.Time
}

// Expired reports whether the grace window has closed at the given instant.
// The boundary is inclusive: an expiry exactly equal to now counts.
func (e Expirable) Expired(now time.Time) bool {
	return e.IsDeleted && e.DeletedExpiry != nil && !e.DeletedExpiry.After(now)
}

// UserRole pairs a user with their role on one composite.
type UserRole struct {
	UserID uuid.UUID
	Role   RoleType
}

// TripNode is one unit of a trip tree. Kind selects which fields are
// meaningful: composites carry Name, Children, Users and Roles; leaves carry
// the destination reference and optional timing.
type TripNode struct {
	ID   uuid.UUID
	Kind NodeKind

	// IsRef marks a composite that attaches an existing sub trip by id.
	// SaveTree writes only the parent edge for it; the referenced row, its
	// membership and its own child edges stay untouched.
	IsRef bool

	// composite
	Name     string
	Children []*TripNode
	Users    []uuid.UUID
	Roles    []UserRole

	// leaf
	DestinationID uuid.UUID
	ArrivalDate   *time.Time
	ArrivalTime   *int // minutes after midnight
	DepartureDate *time.Time
	DepartureTime *int

	Expirable
}

// HasUser reports whether id is in the composite's membership list.
func (n *TripNode) HasUser(id uuid.UUID) bool {
	for _, u := range n.Users {
		if u == id {
			return true
		}
	}
	return false
}

// User is a minimal account record; only the fields the trip subsystem and
// the reaper need are modeled here.
type User struct {
	ID      uuid.UUID
	Name    string
	IsAdmin bool
	Expirable
}

// Destination is a place a leaf node can reference. A public destination
// with a non-nil owner is privately claimed but publicly visible.
type Destination struct {
	ID       uuid.UUID
	Name     string
	IsPublic bool
	OwnerID  *uuid.UUID
	Expirable
}

// Photo is an uploaded image owned by a user. The file behind FilePath is
// removed from disk before the owning user's row is purged.
type Photo struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	FilePath string
	Expirable
}
