package mq

import (
	"github.com/google/uuid"
	"github.com/r3labs/diff/v3"
)

// Mode selects the message-queue backend at boot.
type Mode string

const (
	ModeGoChan    Mode = "go_chan"
	ModeRabbit    Mode = "rabbitmq"
	ModeGCPPubSub Mode = "gcp_pub_sub"
)

// Action is the kind of trip event a queue carries.
type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
	ActionRestore
	ActionCnt
)

// String names the action for topic and queue naming.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionRestore:
		return "restore"
	}
	return "unknown"
}

// TripUpdateMessage is published after a trip mutation commits. Changes is
// the field-level change set between the previous and the new tree; it is
// empty for creates, deletes and restores.
type TripUpdateMessage struct {
	TripID  uuid.UUID
	Name    string
	ActorID uuid.UUID
	Changes diff.Changelog
}

// GetTopic returns the trip id the message belongs to.
func (m TripUpdateMessage) GetTopic() uuid.UUID {
	return m.TripID
}

// DestinationReleaseMessage is published when the ownership guard clears a
// destination's private claim.
type DestinationReleaseMessage struct {
	DestinationID uuid.UUID
	TripID        uuid.UUID
	PreviousOwner uuid.UUID
}

// GetTopic returns the destination id the message belongs to.
func (m DestinationReleaseMessage) GetTopic() uuid.UUID {
	return m.DestinationID
}
