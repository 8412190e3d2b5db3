// Package goch is the in-process message queue backend. It fans messages
// out to subscribers over Go channels and is the default in development.
package goch

import (
	"sync"

	"github.com/google/uuid"

	"wander/mq/mq"
)

const subscriberBuffer = 16

// --- Error Definitions ---
type QueueError string

func (e QueueError) Error() string {
	return string(e)
}

const (
	ErrSubscriberNotFound QueueError = "subscriber not found"
)

type subscriber[M any] struct {
	topic uuid.UUID // uuid.Nil matches every topic
	ch    chan M
}

// channelQueue is the shared fan-out core for both message types.
type channelQueue[M mq.TopicProvider] struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber[M]
}

func newChannelQueue[M mq.TopicProvider]() *channelQueue[M] {
	return &channelQueue[M]{
		subscribers: make(map[uuid.UUID]*subscriber[M]),
	}
}

// publish delivers msg to every subscriber whose topic matches. Sends are
// non-blocking; a subscriber with a full buffer misses the message rather
// than stalling the publisher.
func (q *channelQueue[M]) publish(msg M) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, sub := range q.subscribers {
		if sub.topic != uuid.Nil && sub.topic != msg.GetTopic() {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

func (q *channelQueue[M]) subscribe(topic uuid.UUID) (uuid.UUID, <-chan M, error) {
	id := uuid.New()
	ch := make(chan M, subscriberBuffer)
	q.mu.Lock()
	q.subscribers[id] = &subscriber[M]{topic: topic, ch: ch}
	q.mu.Unlock()
	return id, ch, nil
}

func (q *channelQueue[M]) deSubscribe(id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	sub, ok := q.subscribers[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	delete(q.subscribers, id)
	close(sub.ch)
	return nil
}

// ChannelTripUpdateMessageQueue implements mq.TripUpdateMessageQueue using
// Go channels.
type ChannelTripUpdateMessageQueue struct {
	action mq.Action
	core   *channelQueue[mq.TripUpdateMessage]
}

func NewChannelTripUpdateMessageQueue(action mq.Action) *ChannelTripUpdateMessageQueue {
	return &ChannelTripUpdateMessageQueue{
		action: action,
		core:   newChannelQueue[mq.TripUpdateMessage](),
	}
}

func (q *ChannelTripUpdateMessageQueue) GetAction() mq.Action {
	return q.action
}

func (q *ChannelTripUpdateMessageQueue) Publish(msg mq.TripUpdateMessage) error {
	q.core.publish(msg)
	return nil
}

func (q *ChannelTripUpdateMessageQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.TripUpdateMessage, error) {
	return q.core.subscribe(tripID)
}

func (q *ChannelTripUpdateMessageQueue) DeSubscribe(id uuid.UUID) error {
	return q.core.deSubscribe(id)
}

// ChannelDestinationReleaseMessageQueue implements
// mq.DestinationReleaseMessageQueue using Go channels.
type ChannelDestinationReleaseMessageQueue struct {
	core *channelQueue[mq.DestinationReleaseMessage]
}

func NewChannelDestinationReleaseMessageQueue() *ChannelDestinationReleaseMessageQueue {
	return &ChannelDestinationReleaseMessageQueue{
		core: newChannelQueue[mq.DestinationReleaseMessage](),
	}
}

func (q *ChannelDestinationReleaseMessageQueue) Publish(msg mq.DestinationReleaseMessage) error {
	q.core.publish(msg)
	return nil
}

func (q *ChannelDestinationReleaseMessageQueue) Subscribe(destinationID uuid.UUID) (uuid.UUID, <-chan mq.DestinationReleaseMessage, error) {
	return q.core.subscribe(destinationID)
}

func (q *ChannelDestinationReleaseMessageQueue) DeSubscribe(id uuid.UUID) error {
	return q.core.deSubscribe(id)
}

// GoChanTripMessageQueueWrapper implements mq.TripMessageQueueWrapper.
type GoChanTripMessageQueueWrapper struct {
	UpdateMQArray [mq.ActionCnt]mq.TripUpdateMessageQueue
	ReleaseMQ     mq.DestinationReleaseMessageQueue
}

func (wrapper *GoChanTripMessageQueueWrapper) GetTripUpdateMessageQueue(action mq.Action) mq.TripUpdateMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.UpdateMQArray[action]
}

func (wrapper *GoChanTripMessageQueueWrapper) GetDestinationReleaseMessageQueue() mq.DestinationReleaseMessageQueue {
	return wrapper.ReleaseMQ
}

// NewGoChanTripMessageQueueWrapper creates queues for every trip action plus
// the destination-release stream.
func NewGoChanTripMessageQueueWrapper() mq.TripMessageQueueWrapper {
	wrapper := GoChanTripMessageQueueWrapper{}
	wrapper.UpdateMQArray[mq.ActionCreate] = NewChannelTripUpdateMessageQueue(mq.ActionCreate)
	wrapper.UpdateMQArray[mq.ActionUpdate] = NewChannelTripUpdateMessageQueue(mq.ActionUpdate)
	wrapper.UpdateMQArray[mq.ActionDelete] = NewChannelTripUpdateMessageQueue(mq.ActionDelete)
	wrapper.UpdateMQArray[mq.ActionRestore] = NewChannelTripUpdateMessageQueue(mq.ActionRestore)
	wrapper.ReleaseMQ = NewChannelDestinationReleaseMessageQueue()
	return &wrapper
}
