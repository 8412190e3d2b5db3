package trip

import (
	"time"

	"github.com/google/uuid"

	dbt "wander/db/db"
)

// node type discriminators used on the wire
const (
	NodeTypeComposite = "TripComposite"
	NodeTypeLeaf      = "TripDestinationLeaf"
)

// RolePayload is one (user, role) pair in a trip request or response.
type RolePayload struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role"`
}

// NodePayload is one node of the request tree. NodeType selects which
// fields matter. TripNodeID is set by clients on update to address an
// existing node. A composite carrying TripNodeID and no inline children is
// a reference: it attaches an existing sub trip as-is, without rewriting it.
type NodePayload struct {
	NodeType   string    `json:"nodeType"`
	TripNodeID uuid.UUID `json:"tripNodeId,omitempty"`

	// TripComposite
	Name      string        `json:"name,omitempty"`
	TripNodes []NodePayload `json:"tripNodes,omitempty"`

	// TripDestinationLeaf
	DestinationID uuid.UUID  `json:"destinationId,omitempty"`
	ArrivalDate   *time.Time `json:"arrivalDate,omitempty"`
	ArrivalTime   *int       `json:"arrivalTime,omitempty"`
	DepartureDate *time.Time `json:"departureDate,omitempty"`
	DepartureTime *int       `json:"departureTime,omitempty"`
}

// TripPayload is the request body for trip create and update.
type TripPayload struct {
	Name      string        `json:"name"`
	TripNodes []NodePayload `json:"tripNodes"`
	UserIDs   []RolePayload `json:"userIds"`
}

// BuildTree converts a validated payload into a domain tree rooted at
// rootID. Nodes without a TripNodeID get fresh ids, so the same function
// serves create (all fresh) and update (client-addressed nodes kept).
func BuildTree(rootID uuid.UUID, payload TripPayload) *dbt.TripNode {
	root := &dbt.TripNode{
		ID:   rootID,
		Kind: dbt.NodeComposite,
		Name: payload.Name,
	}
	for _, child := range payload.TripNodes {
		root.Children = append(root.Children, buildNode(child))
	}
	for _, pair := range payload.UserIDs {
		root.Users = append(root.Users, pair.UserID)
	}
	root.Roles = AssignRoles(payload.UserIDs)
	return root
}

func buildNode(p NodePayload) *dbt.TripNode {
	id := p.TripNodeID
	if id == uuid.Nil {
		id = uuid.New()
	}
	if p.NodeType == NodeTypeComposite {
		if isRefNode(p) {
			return &dbt.TripNode{
				ID:    id,
				Kind:  dbt.NodeComposite,
				IsRef: true,
			}
		}
		node := &dbt.TripNode{
			ID:   id,
			Kind: dbt.NodeComposite,
			Name: p.Name,
		}
		for _, child := range p.TripNodes {
			node.Children = append(node.Children, buildNode(child))
		}
		return node
	}
	return &dbt.TripNode{
		ID:            id,
		Kind:          dbt.NodeLeaf,
		DestinationID: p.DestinationID,
		ArrivalDate:   p.ArrivalDate,
		ArrivalTime:   p.ArrivalTime,
		DepartureDate: p.DepartureDate,
		DepartureTime: p.DepartureTime,
	}
}

// AssignRoles turns the request's (userId, role) pairs into stored roles.
// The final listed user is promoted to TRIP_OWNER unless some pair already
// names an owner, so every composite leaves creation with at least one.
func AssignRoles(pairs []RolePayload) []dbt.UserRole {
	if len(pairs) == 0 {
		return nil
	}
	hasOwner := false
	roles := make([]dbt.UserRole, 0, len(pairs))
	for _, pair := range pairs {
		role := dbt.RoleType(pair.Role)
		if !role.Valid() {
			role = dbt.RoleTripMember
		}
		if role == dbt.RoleTripOwner {
			hasOwner = true
		}
		roles = append(roles, dbt.UserRole{UserID: pair.UserID, Role: role})
	}
	if !hasOwner {
		roles[len(roles)-1].Role = dbt.RoleTripOwner
	}
	return roles
}

// CollectLeaves returns every leaf of the tree in traversal order.
func CollectLeaves(root *dbt.TripNode) []*dbt.TripNode {
	if root == nil {
		return nil
	}
	if root.Kind == dbt.NodeLeaf {
		return []*dbt.TripNode{root}
	}
	var leaves []*dbt.TripNode
	for _, child := range root.Children {
		leaves = append(leaves, CollectLeaves(child)...)
	}
	return leaves
}
