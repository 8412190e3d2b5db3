package trip

import (
	"log"

	"github.com/google/uuid"

	dbt "wander/db/db"
	"wander/mq/mq"
)

// releaseAdoptedDestinations enforces the ownership rule on every leaf of a
// freshly saved tree: a public destination still privately claimed by someone
// other than the saving user has its claim cleared. Runs after the trip save
// commits and never fails the save; every problem is logged and the walk
// continues.
func (s *Service) releaseAdoptedDestinations(root *dbt.TripNode, actorID uuid.UUID) {
	for _, leaf := range CollectLeaves(root) {
		dest, err := s.Destinations.GetDestination(leaf.DestinationID)
		if err != nil {
			log.Printf("ownership guard: lookup destination %s: %v", leaf.DestinationID, err)
			continue
		}
		if !dest.IsPublic || dest.OwnerID == nil || *dest.OwnerID == actorID {
			continue
		}
		prevOwner := *dest.OwnerID
		if err := s.Destinations.ClearOwner(dest.ID); err != nil {
			log.Printf("ownership guard: clear owner of destination %s: %v", dest.ID, err)
			continue
		}
		s.publishDestinationRelease(mq.DestinationReleaseMessage{
			DestinationID: dest.ID,
			TripID:        root.ID,
			PreviousOwner: prevOwner,
		})
	}
}

func (s *Service) publishDestinationRelease(msg mq.DestinationReleaseMessage) {
	if s.MQ == nil {
		return
	}
	queue := s.MQ.GetDestinationReleaseMessageQueue()
	if queue == nil {
		return
	}
	if err := queue.Publish(msg); err != nil {
		log.Printf("ownership guard: publish release of destination %s: %v", msg.DestinationID, err)
	}
}
