package trip_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	dbt "wander/db/db"
	"wander/trip"
)

func TestResolveRolePrecedence(t *testing.T) {
	owner := &dbt.User{ID: uuid.New()}
	manager := &dbt.User{ID: uuid.New()}
	member := &dbt.User{ID: uuid.New()}
	listedOnly := &dbt.User{ID: uuid.New()}
	admin := &dbt.User{ID: uuid.New(), IsAdmin: true}

	tree := &dbt.TripNode{
		ID:    uuid.New(),
		Kind:  dbt.NodeComposite,
		Name:  "Roles Trip",
		Users: []uuid.UUID{owner.ID, manager.ID, member.ID, listedOnly.ID},
		Roles: []dbt.UserRole{
			{UserID: owner.ID, Role: dbt.RoleTripOwner},
			{UserID: manager.ID, Role: dbt.RoleTripManager},
			{UserID: member.ID, Role: dbt.RoleTripMember},
		},
	}

	assert.Equal(t, dbt.RoleTripOwner, trip.ResolveRole(tree, owner))
	assert.Equal(t, dbt.RoleTripManager, trip.ResolveRole(tree, manager))
	assert.Equal(t, dbt.RoleTripMember, trip.ResolveRole(tree, member))

	// Listed without a role record is a member, not "no access".
	assert.Equal(t, dbt.RoleTripMember, trip.ResolveRole(tree, listedOnly))

	// Admin override beats everything, even without membership.
	assert.Equal(t, dbt.RoleTripOwner, trip.ResolveRole(tree, admin))
}

func TestResolveRoleTakesHighestEntry(t *testing.T) {
	user := &dbt.User{ID: uuid.New()}
	tree := &dbt.TripNode{
		ID:    uuid.New(),
		Kind:  dbt.NodeComposite,
		Users: []uuid.UUID{user.ID},
		Roles: []dbt.UserRole{
			{UserID: user.ID, Role: dbt.RoleTripMember},
			{UserID: user.ID, Role: dbt.RoleTripManager},
		},
	}
	assert.Equal(t, dbt.RoleTripManager, trip.ResolveRole(tree, user))
}

func TestMutationRights(t *testing.T) {
	owner := &dbt.User{ID: uuid.New()}
	manager := &dbt.User{ID: uuid.New()}
	member := &dbt.User{ID: uuid.New()}
	outsider := &dbt.User{ID: uuid.New()}
	admin := &dbt.User{ID: uuid.New(), IsAdmin: true}

	tree := &dbt.TripNode{
		ID:    uuid.New(),
		Kind:  dbt.NodeComposite,
		Users: []uuid.UUID{owner.ID, manager.ID, member.ID},
		Roles: []dbt.UserRole{
			{UserID: owner.ID, Role: dbt.RoleTripOwner},
			{UserID: manager.ID, Role: dbt.RoleTripManager},
			{UserID: member.ID, Role: dbt.RoleTripMember},
		},
	}

	assert.True(t, trip.CanRead(tree, member))
	assert.False(t, trip.CanRead(tree, outsider), "non-member may not even read")
	assert.True(t, trip.CanRead(tree, admin))

	assert.True(t, trip.CanEdit(tree, owner))
	assert.True(t, trip.CanEdit(tree, manager))
	assert.False(t, trip.CanEdit(tree, member))
	assert.False(t, trip.CanEdit(tree, outsider))
	assert.True(t, trip.CanEdit(tree, admin))

	assert.True(t, trip.CanDelete(tree, owner))
	assert.False(t, trip.CanDelete(tree, manager))
	assert.False(t, trip.CanDelete(tree, member))
	assert.False(t, trip.CanDelete(tree, outsider))
	assert.True(t, trip.CanDelete(tree, admin))
}

func TestAssignRolesPromotesLastListedUser(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	// Test 1: no explicit owner, the final listed user is promoted.
	roles := trip.AssignRoles([]trip.RolePayload{
		{UserID: a, Role: string(dbt.RoleTripMember)},
		{UserID: b, Role: string(dbt.RoleTripMember)},
		{UserID: c, Role: string(dbt.RoleTripMember)},
	})
	assert.Equal(t, dbt.RoleTripOwner, roles[2].Role)
	assert.Equal(t, dbt.RoleTripMember, roles[0].Role)

	// Test 2: an explicit owner elsewhere leaves the last entry alone.
	roles = trip.AssignRoles([]trip.RolePayload{
		{UserID: a, Role: string(dbt.RoleTripOwner)},
		{UserID: b, Role: string(dbt.RoleTripMember)},
	})
	assert.Equal(t, dbt.RoleTripOwner, roles[0].Role)
	assert.Equal(t, dbt.RoleTripMember, roles[1].Role)

	// Test 3: a blank role defaults to member before the owner rule runs.
	roles = trip.AssignRoles([]trip.RolePayload{
		{UserID: a},
		{UserID: b},
	})
	assert.Equal(t, dbt.RoleTripMember, roles[0].Role)
	assert.Equal(t, dbt.RoleTripOwner, roles[1].Role)

	// Test 4: empty input stays empty.
	assert.Nil(t, trip.AssignRoles(nil))
}
