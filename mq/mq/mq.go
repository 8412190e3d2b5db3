package mq

import "github.com/google/uuid"

// TopicProvider is anything that can name the topic it belongs to.
type TopicProvider interface {
	GetTopic() uuid.UUID
}

// TripMessageQueueWrapper bundles the per-action queues one backend offers.
type TripMessageQueueWrapper interface {
	GetTripUpdateMessageQueue(action Action) TripUpdateMessageQueue
	GetDestinationReleaseMessageQueue() DestinationReleaseMessageQueue
}

// TripUpdateMessageQueue carries TripUpdateMessages for one action.
// Subscribe filters on trip id; uuid.Nil subscribes to every trip.
type TripUpdateMessageQueue interface {
	GetAction() Action
	Publish(msg TripUpdateMessage) error
	Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan TripUpdateMessage, error)
	DeSubscribe(id uuid.UUID) error
}

// DestinationReleaseMessageQueue carries ownership-release events.
// Subscribe filters on destination id; uuid.Nil subscribes to all.
type DestinationReleaseMessageQueue interface {
	Publish(msg DestinationReleaseMessage) error
	Subscribe(destinationID uuid.UUID) (uuid.UUID, <-chan DestinationReleaseMessage, error)
	DeSubscribe(id uuid.UUID) error
}
