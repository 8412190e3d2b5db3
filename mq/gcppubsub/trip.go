package gcppubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"

	"wander/mq/mq"
)

const (
	tripIDAttribute = "tripId"
)

// subscriptionInfo holds details about an active Pub/Sub subscription.
type subscriptionInfo struct {
	gcpSubscription *pubsub.Subscription
	cancel          context.CancelFunc
}

// GenericPubSubService provides a generic implementation for GCP Pub/Sub operations.
type GenericPubSubService[M any] struct {
	client              *pubsub.Client
	topic               *pubsub.Topic
	activeSubscriptions map[uuid.UUID]*subscriptionInfo
	subscriptionsMutex  sync.Mutex
	ctx                 context.Context
}

// NewGenericPubSubService creates and initializes a generic service for a specific message type.
// It ensures the underlying Pub/Sub topic exists, creating it if necessary.
func NewGenericPubSubService[M any](ctx context.Context, client *pubsub.Client, topicID string) (*GenericPubSubService[M], error) {
	if client == nil {
		return nil, fmt.Errorf("GCP Pub/Sub client is nil")
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existence of topic %s: %w", topicID, err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("failed to create topic %s: %w", topicID, err)
		}
		log.Printf("Created Pub/Sub topic: %s", topicID)
	}

	return &GenericPubSubService[M]{
		client:              client,
		topic:               topic,
		activeSubscriptions: make(map[uuid.UUID]*subscriptionInfo),
		ctx:                 ctx,
	}, nil
}

// Publish sends a message to the configured Pub/Sub topic with the tripId as an attribute.
func (s *GenericPubSubService[M]) Publish(msg mq.TopicProvider) error {
	typeName := reflect.TypeOf(msg).Name()
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", typeName, err)
	}

	routingKey := msg.GetTopic().String()
	pubsubMsg := &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			tripIDAttribute: routingKey,
		},
	}

	// Publish is non-blocking. The client library handles batching and sending.
	result := s.topic.Publish(s.ctx, pubsubMsg)
	_, err = result.Get(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to publish %s to topic %s: %w", typeName, s.topic.ID(), err)
	}
	return nil
}

// Subscribe creates a new filtered subscription on GCP and starts listening for messages.
func (s *GenericPubSubService[M]) Subscribe(topicId uuid.UUID) (uuid.UUID, <-chan M, error) {
	subscriptionID := uuid.New() // Internal ID for tracking
	typeName := reflect.TypeOf(*new(M)).Name()

	// Create a unique, descriptive subscription name for GCP.
	gcpSubName := fmt.Sprintf("sub-%s-%s-%s", typeName, topicId.String(), subscriptionID.String())

	config := pubsub.SubscriptionConfig{
		Topic:            s.topic,
		Filter:           fmt.Sprintf("attributes.%s = \"%s\"", tripIDAttribute, topicId.String()),
		ExpirationPolicy: 24 * time.Hour,
		AckDeadline:      10 * time.Second,
	}

	gcpSub, err := s.client.CreateSubscription(s.ctx, gcpSubName, config)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to create GCP subscription %s for %s: %w", gcpSubName, typeName, err)
	}

	msgChan := make(chan M, 5)
	receiveCtx, cancel := context.WithCancel(s.ctx)

	s.subscriptionsMutex.Lock()
	s.activeSubscriptions[subscriptionID] = &subscriptionInfo{
		gcpSubscription: gcpSub,
		cancel:          cancel,
	}
	s.subscriptionsMutex.Unlock()

	go func() {
		// Automatically clean up when the goroutine exits.
		defer func() {
			s.subscriptionsMutex.Lock()
			delete(s.activeSubscriptions, subscriptionID)
			s.subscriptionsMutex.Unlock()

			// Delete the subscription from GCP to prevent resource leaks.
			if deleteErr := gcpSub.Delete(context.Background()); deleteErr != nil {
				log.Printf("Error deleting GCP subscription %s: %v", gcpSub.ID(), deleteErr)
			}
			close(msgChan)
		}()

		// Receive blocks until the context is cancelled.
		err := gcpSub.Receive(receiveCtx, func(ctx context.Context, pubsubMsg *pubsub.Message) {
			pubsubMsg.Ack()

			var msg M
			if err := json.Unmarshal(pubsubMsg.Data, &msg); err != nil {
				log.Printf("Error unmarshaling %s for %s: %v. Body: %s", typeName, subscriptionID, err, string(pubsubMsg.Data))
				return
			}

			select {
			case msgChan <- msg:
			case <-time.After(2 * time.Second):
				log.Printf("Timeout sending %s to msgChan for %s.", typeName, subscriptionID)
			case <-receiveCtx.Done():
				return
			}
		})

		if err != nil && err != context.Canceled {
			log.Printf("Error in Receive loop for %s subscription %s: %v", typeName, subscriptionID, err)
		}
	}()

	return subscriptionID, msgChan, nil
}

// DeSubscribe stops the message receiver and deletes the subscription from GCP.
func (s *GenericPubSubService[M]) DeSubscribe(id uuid.UUID) error {
	s.subscriptionsMutex.Lock()
	info, ok := s.activeSubscriptions[id]
	if ok {
		// It's removed from the map inside the goroutine's defer block.
		// Here we just trigger the cancellation.
		info.cancel()
	}
	s.subscriptionsMutex.Unlock()

	if !ok {
		return fmt.Errorf("subscription ID %s not found for %s service", id, reflect.TypeOf(*new(M)).Name())
	}

	return nil
}

// Close gracefully shuts down all active subscriptions for this service.
func (s *GenericPubSubService[M]) Close() {
	s.subscriptionsMutex.Lock()
	defer s.subscriptionsMutex.Unlock()

	for _, info := range s.activeSubscriptions {
		info.cancel()
	}
}

// --- tripUpdateMQ implementation ---

type tripUpdateMQ struct {
	genericService *GenericPubSubService[mq.TripUpdateMessage]
	action         mq.Action
}

func NewTripUpdateMessageQueue(ctx context.Context, client *pubsub.Client, action mq.Action) (*tripUpdateMQ, error) {
	topicID := fmt.Sprintf("trip-update-%s", action.String())
	gs, err := NewGenericPubSubService[mq.TripUpdateMessage](ctx, client, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to create generic service for TripUpdate: %w", err)
	}
	return &tripUpdateMQ{genericService: gs, action: action}, nil
}
func (q *tripUpdateMQ) GetAction() mq.Action                   { return q.action }
func (q *tripUpdateMQ) Publish(msg mq.TripUpdateMessage) error { return q.genericService.Publish(msg) }
func (q *tripUpdateMQ) Subscribe(tripId uuid.UUID) (uuid.UUID, <-chan mq.TripUpdateMessage, error) {
	return q.genericService.Subscribe(tripId)
}
func (q *tripUpdateMQ) DeSubscribe(id uuid.UUID) error { return q.genericService.DeSubscribe(id) }

// --- destinationReleaseMQ implementation ---

type destinationReleaseMQ struct {
	genericService *GenericPubSubService[mq.DestinationReleaseMessage]
}

func NewDestinationReleaseMessageQueue(ctx context.Context, client *pubsub.Client) (*destinationReleaseMQ, error) {
	gs, err := NewGenericPubSubService[mq.DestinationReleaseMessage](ctx, client, "destination-release")
	if err != nil {
		return nil, fmt.Errorf("failed to create generic service for DestinationRelease: %w", err)
	}
	return &destinationReleaseMQ{genericService: gs}, nil
}
func (q *destinationReleaseMQ) Publish(msg mq.DestinationReleaseMessage) error {
	return q.genericService.Publish(msg)
}
func (q *destinationReleaseMQ) Subscribe(destId uuid.UUID) (uuid.UUID, <-chan mq.DestinationReleaseMessage, error) {
	return q.genericService.Subscribe(destId)
}
func (q *destinationReleaseMQ) DeSubscribe(id uuid.UUID) error {
	return q.genericService.DeSubscribe(id)
}

// --------- trip message queue wrapper implementation ---------

type GCPTripMessageQueueWrapper struct {
	UpdateMQArray [mq.ActionCnt]*tripUpdateMQ
	ReleaseMQ     *destinationReleaseMQ
}

func (wrapper *GCPTripMessageQueueWrapper) GetTripUpdateMessageQueue(action mq.Action) mq.TripUpdateMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.UpdateMQArray[action]
}

func (wrapper *GCPTripMessageQueueWrapper) GetDestinationReleaseMessageQueue() mq.DestinationReleaseMessageQueue {
	return wrapper.ReleaseMQ
}

// NewGCPTripMessageQueueWrapper creates a new MQ wrapper instance using GCP Pub/Sub.
func NewGCPTripMessageQueueWrapper(ctx context.Context, projectID string) (mq.TripMessageQueueWrapper, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Pub/Sub client for project %s: %w", projectID, err)
	}

	wrapper := &GCPTripMessageQueueWrapper{}

	for action := mq.ActionCreate; action < mq.ActionCnt; action++ {
		wrapper.UpdateMQArray[action], err = NewTripUpdateMessageQueue(ctx, client, action)
		if err != nil {
			return nil, err
		}
	}

	wrapper.ReleaseMQ, err = NewDestinationReleaseMessageQueue(ctx, client)
	if err != nil {
		return nil, err
	}

	return wrapper, nil
}
