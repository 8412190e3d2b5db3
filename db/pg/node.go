package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbt "wander/db/db"
)

// GORMTripNodeDBWrapper is a GORM-based PostgreSQL implementation of
// dbt.TripNodeDBWrapper. Nodes are stored flat; parent/child structure and
// ordering live entirely in trip_node_children rows.
type GORMTripNodeDBWrapper struct {
	db *gorm.DB
}

// NewGORMTripNodeDBWrapper creates and returns a new instance of GORMTripNodeDBWrapper.
func NewGORMTripNodeDBWrapper(db *gorm.DB) dbt.TripNodeDBWrapper {
	return &GORMTripNodeDBWrapper{
		db: db,
	}
}

// SaveTree persists the whole subtree in one transaction. The root's
// membership list is pushed down into every descendant composite before its
// row is written, and each composite's child edges are rewritten as a single
// batch so readers never see a half-applied reorder.
func (pgdb *GORMTripNodeDBWrapper) SaveTree(root *dbt.TripNode) error {
	if root == nil {
		return fmt.Errorf("cannot save nil trip node")
	}
	return pgdb.db.Transaction(func(tx *gorm.DB) error {
		return saveSubtree(tx, root, nil)
	})
}

func saveSubtree(tx *gorm.DB, node *dbt.TripNode, inherited []uuid.UUID) error {
	if node.IsRef {
		// referenced sub trip: the parent edge is all that gets written
		return nil
	}
	if node.Kind == dbt.NodeComposite {
		node.Users = mergeUserIDs(node.Users, inherited)
	}

	model := nodeToModel(node)
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save trip node %s: %w", node.ID, err)
	}

	if node.Kind == dbt.NodeLeaf {
		return nil
	}

	if err := replaceMembership(tx, node); err != nil {
		return err
	}

	for _, child := range node.Children {
		if child.ID == node.ID {
			continue // self-loop, never persisted
		}
		if err := saveSubtree(tx, child, node.Users); err != nil {
			return err
		}
	}

	return replaceChildEdges(tx, node)
}

// replaceChildEdges rewrites all (parent, child, index) rows for one parent.
// Runs inside the SaveTree transaction, so the swap is atomic.
func replaceChildEdges(tx *gorm.DB, node *dbt.TripNode) error {
	if err := tx.Where("parent_id = ?", node.ID).Delete(&TripNodeChildModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear child edges for %s: %w", node.ID, err)
	}

	var edges []TripNodeChildModel
	for i, child := range node.Children {
		if child.ID == node.ID {
			continue
		}
		edges = append(edges, TripNodeChildModel{
			ParentID:   node.ID,
			ChildID:    child.ID,
			ChildIndex: i,
		})
	}
	if len(edges) == 0 {
		return nil
	}
	if err := tx.Create(&edges).Error; err != nil {
		return fmt.Errorf("failed to write child edges for %s: %w", node.ID, err)
	}
	return nil
}

func replaceMembership(tx *gorm.DB, node *dbt.TripNode) error {
	if err := tx.Where("node_id = ?", node.ID).Delete(&TripNodeUserModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear membership for %s: %w", node.ID, err)
	}
	var members []TripNodeUserModel
	for _, uid := range node.Users {
		members = append(members, TripNodeUserModel{NodeID: node.ID, UserID: uid})
	}
	if len(members) > 0 {
		if err := tx.Create(&members).Error; err != nil {
			return fmt.Errorf("failed to write membership for %s: %w", node.ID, err)
		}
	}

	if err := tx.Where("node_id = ?", node.ID).Delete(&UserRoleModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear roles for %s: %w", node.ID, err)
	}
	var roles []UserRoleModel
	for _, r := range node.Roles {
		roles = append(roles, UserRoleModel{NodeID: node.ID, UserID: r.UserID, Role: string(r.Role)})
	}
	if len(roles) > 0 {
		if err := tx.Create(&roles).Error; err != nil {
			return fmt.Errorf("failed to write roles for %s: %w", node.ID, err)
		}
	}
	return nil
}

// GetTree loads a node and resolves its subtree in child_index order.
// Traversal carries a visited set; a repeated id means the edge rows are
// corrupt and the walk stops with dbt.ErrCyclicTree.
func (pgdb *GORMTripNodeDBWrapper) GetTree(id uuid.UUID) (*dbt.TripNode, error) {
	visited := make(map[uuid.UUID]bool)
	return pgdb.fetchSubtree(id, visited, 0)
}

func (pgdb *GORMTripNodeDBWrapper) fetchSubtree(id uuid.UUID, visited map[uuid.UUID]bool, depth int) (*dbt.TripNode, error) {
	if depth > dbt.MaxTreeDepth {
		return nil, dbt.ErrTreeTooDeep
	}
	if visited[id] {
		return nil, dbt.ErrCyclicTree
	}
	visited[id] = true

	var model TripNodeModel
	result := pgdb.db.First(&model, "id = ? AND is_deleted = ?", id, false)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, dbt.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip node %s: %w", id, result.Error)
	}

	node := modelToNode(&model)
	if node.Kind == dbt.NodeLeaf {
		return node, nil
	}

	if err := pgdb.loadMembership(node); err != nil {
		return nil, err
	}

	var edges []TripNodeChildModel
	result = pgdb.db.Where("parent_id = ? AND child_id <> ?", id, id).
		Order("child_index ASC").Find(&edges)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get children of %s: %w", id, result.Error)
	}

	for _, edge := range edges {
		child, err := pgdb.fetchSubtree(edge.ChildID, visited, depth+1)
		if err != nil {
			if errors.Is(err, dbt.ErrNotFound) {
				// soft-deleted child stays hidden from the tree
				continue
			}
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func (pgdb *GORMTripNodeDBWrapper) loadMembership(node *dbt.TripNode) error {
	var members []TripNodeUserModel
	if err := pgdb.db.Where("node_id = ?", node.ID).Find(&members).Error; err != nil {
		return fmt.Errorf("failed to get membership for %s: %w", node.ID, err)
	}
	for _, m := range members {
		node.Users = append(node.Users, m.UserID)
	}

	var roles []UserRoleModel
	if err := pgdb.db.Where("node_id = ?", node.ID).Find(&roles).Error; err != nil {
		return fmt.Errorf("failed to get roles for %s: %w", node.ID, err)
	}
	for _, r := range roles {
		node.Roles = append(node.Roles, dbt.UserRole{UserID: r.UserID, Role: dbt.RoleType(r.Role)})
	}
	return nil
}

// GetNode loads one node row without resolving children.
func (pgdb *GORMTripNodeDBWrapper) GetNode(id uuid.UUID, includeDeleted bool) (*dbt.TripNode, error) {
	var model TripNodeModel
	query := pgdb.db
	if !includeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	result := query.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, dbt.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip node %s: %w", id, result.Error)
	}
	node := modelToNode(&model)
	if node.Kind == dbt.NodeComposite {
		if err := pgdb.loadMembership(node); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// MarkNodeDeleted soft-deletes a single node. Children are untouched; they
// become unreachable through GetTree until the node is restored.
func (pgdb *GORMTripNodeDBWrapper) MarkNodeDeleted(id uuid.UUID, expiry time.Time) error {
	result := pgdb.db.Model(&TripNodeModel{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_expiry": expiry})
	if result.Error != nil {
		return fmt.Errorf("failed to delete trip node %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return dbt.ErrNotFound
	}
	return nil
}

// RestoreNode clears the soft-delete state. Restoring a live node is an
// error the caller surfaces as a bad request.
func (pgdb *GORMTripNodeDBWrapper) RestoreNode(id uuid.UUID) error {
	var model TripNodeModel
	result := pgdb.db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return dbt.ErrNotFound
		}
		return fmt.Errorf("failed to get trip node %s: %w", id, result.Error)
	}
	if !model.IsDeleted {
		return dbt.ErrNotDeleted
	}
	result = pgdb.db.Model(&TripNodeModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_deleted": false, "deleted_expiry": nil})
	if result.Error != nil {
		return fmt.Errorf("failed to restore trip node %s: %w", id, result.Error)
	}
	return nil
}

// HasParent reports whether any child edge points at the node.
func (pgdb *GORMTripNodeDBWrapper) HasParent(id uuid.UUID) (bool, error) {
	var cnt int64
	result := pgdb.db.Model(&TripNodeChildModel{}).
		Where("child_id = ? AND parent_id <> ?", id, id).Count(&cnt)
	if result.Error != nil {
		return false, fmt.Errorf("failed to count parents of %s: %w", id, result.Error)
	}
	return cnt > 0, nil
}

// DataLoaderGetChildren batch-resolves ordered child id lists for many parents.
func (pgdb *GORMTripNodeDBWrapper) DataLoaderGetChildren(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	var edges []TripNodeChildModel
	result := pgdb.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("parent_id, child_index ASC").Find(&edges)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to batch load children: %w", result.Error)
	}
	out := make(map[uuid.UUID][]uuid.UUID, len(parentIDs))
	for _, edge := range edges {
		if edge.ChildID == edge.ParentID {
			continue
		}
		out[edge.ParentID] = append(out[edge.ParentID], edge.ChildID)
	}
	return out, nil
}

func mergeUserIDs(base, inherited []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(base)+len(inherited))
	out := make([]uuid.UUID, 0, len(base)+len(inherited))
	for _, id := range base {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range inherited {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func nodeToModel(n *dbt.TripNode) TripNodeModel {
	m := TripNodeModel{
		ID:            n.ID,
		Kind:          int(n.Kind),
		Name:          n.Name,
		IsDeleted:     n.IsDeleted,
		DeletedExpiry: n.DeletedExpiry,
	}
	if n.Kind == dbt.NodeLeaf {
		destID := n.DestinationID
		m.DestinationID = &destID
		m.ArrivalDate = n.ArrivalDate
		m.ArrivalTime = n.ArrivalTime
		m.DepartureDate = n.DepartureDate
		m.DepartureTime = n.DepartureTime
	}
	return m
}

func modelToNode(m *TripNodeModel) *dbt.TripNode {
	n := &dbt.TripNode{
		ID:   m.ID,
		Kind: dbt.NodeKind(m.Kind),
		Name: m.Name,
		Expirable: dbt.Expirable{
			IsDeleted:     m.IsDeleted,
			DeletedExpiry: m.DeletedExpiry,
		},
	}
	if n.Kind == dbt.NodeLeaf {
		if m.DestinationID != nil {
			n.DestinationID = *m.DestinationID
		}
		n.ArrivalDate = m.ArrivalDate
		n.ArrivalTime = m.ArrivalTime
		n.DepartureDate = m.DepartureDate
		n.DepartureTime = m.DepartureTime
	}
	return n
}
