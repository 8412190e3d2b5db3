package trip

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	odiff "github.com/r3labs/diff/v3"

	dbt "wander/db/db"
	"wander/libs/diff"
	"wander/mq/mq"
)

// ErrForbidden marks an authenticated request whose user lacks the role the
// operation demands. The web layer maps it to 403.
var ErrForbidden = errors.New("insufficient role")

// Service is the trip facade. Every request moves through the same stages:
// validate the payload and the caller's role, persist through the node
// store, then notify subscribers on the message queue. Notification and the
// destination ownership guard run after the save commits and never fail it.
type Service struct {
	Nodes        dbt.TripNodeDBWrapper
	Users        dbt.UserDBWrapper
	Destinations dbt.DestinationDBWrapper
	MQ           mq.TripMessageQueueWrapper

	// Now is the clock for soft-delete expiries. Injectable for tests.
	Now func() time.Time

	differ *odiff.Differ
}

func NewService(nodes dbt.TripNodeDBWrapper, users dbt.UserDBWrapper, dests dbt.DestinationDBWrapper, q mq.TripMessageQueueWrapper) *Service {
	return &Service{
		Nodes:        nodes,
		Users:        users,
		Destinations: dests,
		MQ:           q,
		Now:          time.Now,
		differ:       diff.GetCustomDiffer(),
	}
}

// CreateTrip validates and persists a brand new trip tree authored by
// actorID. The actor is always granted membership; when the payload names
// no collaborators at all, the actor becomes the sole TRIP_OWNER.
func (s *Service) CreateTrip(actorID uuid.UUID, payload TripPayload) (*dbt.TripNode, error) {
	actor, err := s.Users.GetUser(actorID)
	if err != nil {
		return nil, fmt.Errorf("actor %s: %w", actorID, err)
	}
	if err := ValidateTrip(payload); err != nil {
		return nil, err
	}
	if err := s.checkReferences(payload); err != nil {
		return nil, err
	}

	root := BuildTree(uuid.New(), payload)
	if !root.HasUser(actor.ID) {
		root.Users = append(root.Users, actor.ID)
	}
	if len(root.Roles) == 0 {
		root.Roles = []dbt.UserRole{{UserID: actor.ID, Role: dbt.RoleTripOwner}}
	}

	if err := s.Nodes.SaveTree(root); err != nil {
		return nil, fmt.Errorf("save trip: %w", err)
	}

	s.releaseAdoptedDestinations(root, actor.ID)
	s.publishUpdate(mq.ActionCreate, mq.TripUpdateMessage{
		TripID:  root.ID,
		Name:    root.Name,
		ActorID: actor.ID,
	})
	// re-read so referenced sub trips come back resolved
	return s.Nodes.GetTree(root.ID)
}

// GetTrip loads the full tree at id for actorID. Non-members are refused
// even for reads.
func (s *Service) GetTrip(actorID uuid.UUID, id uuid.UUID) (*dbt.TripNode, error) {
	actor, err := s.Users.GetUser(actorID)
	if err != nil {
		return nil, fmt.Errorf("actor %s: %w", actorID, err)
	}
	tree, err := s.Nodes.GetTree(id)
	if err != nil {
		return nil, err
	}
	if !CanRead(tree, actor) {
		return nil, ErrForbidden
	}
	return tree, nil
}

// UpdateTrip replaces the trip's name, child list and membership with the
// payload's. Requires TRIP_MANAGER or better. The published message carries
// the field-level change set between the old and new tree.
func (s *Service) UpdateTrip(actorID uuid.UUID, id uuid.UUID, payload TripPayload) (*dbt.TripNode, error) {
	actor, err := s.Users.GetUser(actorID)
	if err != nil {
		return nil, fmt.Errorf("actor %s: %w", actorID, err)
	}
	old, err := s.Nodes.GetTree(id)
	if err != nil {
		return nil, err
	}
	if !CanEdit(old, actor) {
		return nil, ErrForbidden
	}
	if err := ValidateTrip(payload); err != nil {
		return nil, err
	}
	if err := s.checkReferences(payload); err != nil {
		return nil, err
	}

	next := BuildTree(id, payload)
	if !next.HasUser(actor.ID) && !actor.IsAdmin {
		next.Users = append(next.Users, actor.ID)
	}
	if len(next.Roles) == 0 {
		next.Roles = old.Roles
	}

	if err := s.Nodes.SaveTree(next); err != nil {
		return nil, fmt.Errorf("save trip %s: %w", id, err)
	}

	s.pruneDetachedNodes(old, next)
	s.releaseAdoptedDestinations(next, actor.ID)

	saved, err := s.Nodes.GetTree(id)
	if err != nil {
		return nil, err
	}

	changes, diffErr := s.differ.Diff(old, saved)
	if diffErr != nil {
		log.Printf("diff trip %s: %v", id, diffErr)
	}
	s.publishUpdate(mq.ActionUpdate, mq.TripUpdateMessage{
		TripID:  id,
		Name:    saved.Name,
		ActorID: actor.ID,
		Changes: changes,
	})
	return saved, nil
}

// pruneDetachedNodes soft-deletes nodes the update dropped from the tree,
// once no other parent still references them. They keep the standard grace
// window, so an accidental removal stays restorable.
func (s *Service) pruneDetachedNodes(old, next *dbt.TripNode) {
	kept := make(map[uuid.UUID]bool)
	collectIDs(next, kept)
	dropped := make(map[uuid.UUID]bool)
	collectIDs(old, dropped)

	expiry := s.Now().Add(dbt.DeleteGracePeriod)
	for id := range dropped {
		if kept[id] {
			continue
		}
		attached, err := s.Nodes.HasParent(id)
		if err != nil {
			log.Printf("prune trip node %s: %v", id, err)
			continue
		}
		if attached {
			continue
		}
		if err := s.Nodes.MarkNodeDeleted(id, expiry); err != nil && !errors.Is(err, dbt.ErrNotFound) {
			log.Printf("prune trip node %s: %v", id, err)
		}
	}
}

func collectIDs(node *dbt.TripNode, into map[uuid.UUID]bool) {
	if node == nil || into[node.ID] {
		return
	}
	into[node.ID] = true
	for _, child := range node.Children {
		collectIDs(child, into)
	}
}

// DeleteTrip soft-deletes the node at id with the standard grace window.
// Only a TRIP_OWNER (or admin) may delete. Children stay untouched; they
// come back with the node if it is restored within the window.
func (s *Service) DeleteTrip(actorID uuid.UUID, id uuid.UUID) error {
	actor, err := s.Users.GetUser(actorID)
	if err != nil {
		return fmt.Errorf("actor %s: %w", actorID, err)
	}
	node, err := s.Nodes.GetNode(id, false)
	if err != nil {
		return err
	}
	if !CanDelete(node, actor) {
		return ErrForbidden
	}

	expiry := s.Now().Add(dbt.DeleteGracePeriod)
	if err := s.Nodes.MarkNodeDeleted(id, expiry); err != nil {
		return err
	}

	s.publishUpdate(mq.ActionDelete, mq.TripUpdateMessage{
		TripID:  id,
		Name:    node.Name,
		ActorID: actor.ID,
	})
	return nil
}

// RestoreTrip undoes a soft delete before the reaper reaches the node.
// Restoring a live node is a bad request, not a no-op.
func (s *Service) RestoreTrip(actorID uuid.UUID, id uuid.UUID) (*dbt.TripNode, error) {
	actor, err := s.Users.GetUser(actorID)
	if err != nil {
		return nil, fmt.Errorf("actor %s: %w", actorID, err)
	}
	node, err := s.Nodes.GetNode(id, true)
	if err != nil {
		return nil, err
	}
	if !CanDelete(node, actor) {
		return nil, ErrForbidden
	}

	if err := s.Nodes.RestoreNode(id); err != nil {
		return nil, err
	}

	s.publishUpdate(mq.ActionRestore, mq.TripUpdateMessage{
		TripID:  id,
		Name:    node.Name,
		ActorID: actor.ID,
	})
	return s.Nodes.GetTree(id)
}

// checkReferences verifies every user, destination and referenced sub trip
// the payload names actually exists. Reference failures surface as
// not-found, before any row is written.
func (s *Service) checkReferences(payload TripPayload) error {
	for _, pair := range payload.UserIDs {
		if _, err := s.Users.GetUser(pair.UserID); err != nil {
			return fmt.Errorf("user %s: %w", pair.UserID, err)
		}
	}
	for _, leaf := range flattenLeaves(payload.TripNodes) {
		if _, err := s.Destinations.GetDestination(leaf.DestinationID); err != nil {
			return fmt.Errorf("destination %s: %w", leaf.DestinationID, err)
		}
	}
	for _, refID := range flattenRefs(payload.TripNodes) {
		node, err := s.Nodes.GetNode(refID, false)
		if err != nil {
			return fmt.Errorf("sub trip %s: %w", refID, err)
		}
		if node.Kind != dbt.NodeComposite {
			return invalid("trip node %s is not a sub trip", refID)
		}
	}
	return nil
}

// publishUpdate forwards a trip event to the queue for its action. Publish
// failures are logged; the mutation already committed.
func (s *Service) publishUpdate(action mq.Action, msg mq.TripUpdateMessage) {
	if s.MQ == nil {
		return
	}
	queue := s.MQ.GetTripUpdateMessageQueue(action)
	if queue == nil {
		return
	}
	if err := queue.Publish(msg); err != nil {
		log.Printf("publish trip %s %s: %v", msg.TripID, action, err)
	}
}
