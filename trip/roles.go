package trip

import (
	dbt "wander/db/db"
)

// ResolveRole returns the user's effective authority on a trip composite.
// Admins get TRIP_OWNER regardless of trip-level roles. A member with no
// explicit role entry is a TRIP_MEMBER, never "no access": being listed in
// the composite's users is the access gate, the role only scopes mutation
// rights.
func ResolveRole(trip *dbt.TripNode, user *dbt.User) dbt.RoleType {
	if user.IsAdmin {
		return dbt.RoleTripOwner
	}
	role := dbt.RoleTripMember
	for _, entry := range trip.Roles {
		if entry.UserID != user.ID {
			continue
		}
		if entry.Role.Valid() && entry.Role.AtLeast(role) {
			role = entry.Role
		}
	}
	return role
}

// CanRead reports whether the user may see the trip at all.
func CanRead(trip *dbt.TripNode, user *dbt.User) bool {
	return user.IsAdmin || trip.HasUser(user.ID)
}

// CanEdit reports whether the user may change name, children or membership.
func CanEdit(trip *dbt.TripNode, user *dbt.User) bool {
	return CanRead(trip, user) && ResolveRole(trip, user).AtLeast(dbt.RoleTripManager)
}

// CanDelete reports whether the user may soft-delete or restore the trip.
func CanDelete(trip *dbt.TripNode, user *dbt.User) bool {
	return CanRead(trip, user) && ResolveRole(trip, user) == dbt.RoleTripOwner
}
