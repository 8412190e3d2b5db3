package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"wander/mq/mq"
)

const (
	exchangeName = "trip_events_exchange" // All trip-related events go through this exchange
)

// Routing keys per action and message type.
const (
	tripCreateRoutingKey  = "trip.create"
	tripUpdateRoutingKey  = "trip.update"
	tripDeleteRoutingKey  = "trip.delete"
	tripRestoreRoutingKey = "trip.restore"
	destReleaseRoutingKey = "destination.release"
)

func getRoutingKey(action mq.Action) string {
	switch action {
	case mq.ActionCreate:
		return tripCreateRoutingKey
	case mq.ActionUpdate:
		return tripUpdateRoutingKey
	case mq.ActionDelete:
		return tripDeleteRoutingKey
	case mq.ActionRestore:
		return tripRestoreRoutingKey
	}
	return ""
}

// rabbitTripUpdateMessageQueue implements mq.TripUpdateMessageQueue for RabbitMQ.
type rabbitTripUpdateMessageQueue struct {
	action     mq.Action
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queueName  string
	routingKey string
	mu         sync.RWMutex // Protects the consumers map
	consumers  map[uuid.UUID]chan mq.TripUpdateMessage
}

// NewRabbitTripUpdateMessageQueue creates a new RabbitMQ queue for TripUpdateMessages.
func NewRabbitTripUpdateMessageQueue(action mq.Action, conn *amqp091.Connection) (mq.TripUpdateMessageQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	queueName := fmt.Sprintf("trip_update_%d_queue", action)
	routingKey := getRoutingKey(action)

	err = DeclareQueueAndExchange(ch, queueName, exchangeName, routingKey)
	if err != nil {
		ch.Close()
		return nil, err
	}

	return &rabbitTripUpdateMessageQueue{
		action:     action,
		conn:       conn,
		channel:    ch,
		queueName:  queueName,
		routingKey: routingKey,
		consumers:  make(map[uuid.UUID]chan mq.TripUpdateMessage),
	}, nil
}

func (q *rabbitTripUpdateMessageQueue) GetAction() mq.Action {
	return q.action
}

// Publish sends a TripUpdateMessage through the exchange.
func (q *rabbitTripUpdateMessageQueue) Publish(msg mq.TripUpdateMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = q.channel.PublishWithContext(ctx,
		exchangeName, // exchange
		q.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe registers a consumer. Messages for other trips are filtered out
// client-side when a specific trip id is given.
func (q *rabbitTripUpdateMessageQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.TripUpdateMessage, error) {
	msgs, err := q.channel.Consume(
		q.queueName, // queue
		"",          // consumer
		true,        // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	subscriberID := uuid.New()
	outputChan := make(chan mq.TripUpdateMessage)

	q.mu.Lock()
	q.consumers[subscriberID] = outputChan
	q.mu.Unlock()

	go func() {
		defer func() {
			q.mu.Lock()
			if ch, ok := q.consumers[subscriberID]; ok {
				close(ch)
				delete(q.consumers, subscriberID)
			}
			q.mu.Unlock()
		}()

		for d := range msgs {
			var msg mq.TripUpdateMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.Printf("Failed to unmarshal TripUpdateMessage: %v", err)
				continue
			}
			if tripID != uuid.Nil && msg.TripID != tripID {
				continue
			}

			q.mu.RLock()
			ch, ok := q.consumers[subscriberID]
			q.mu.RUnlock()
			if !ok {
				// Consumer was unsubscribed while message was in flight
				log.Printf("TripUpdateMessage consumer %s no longer active. Skipping message.", subscriberID)
				return
			}
			select {
			case ch <- msg:
			case <-time.After(1 * time.Second): // Prevent blocking indefinitely
				log.Printf("Timeout sending message to TripUpdateMessage consumer %s. Skipping.", subscriberID)
			}
		}
	}()

	return subscriberID, outputChan, nil
}

// DeSubscribe removes a subscriber by its ID.
func (q *rabbitTripUpdateMessageQueue) DeSubscribe(subscriberID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ch, ok := q.consumers[subscriberID]; ok {
		delete(q.consumers, subscriberID)
		close(ch)
		return nil
	}
	return fmt.Errorf("consumer with ID %s not found for queue %s", subscriberID, q.queueName)
}

// rabbitDestinationReleaseMessageQueue implements
// mq.DestinationReleaseMessageQueue for RabbitMQ.
type rabbitDestinationReleaseMessageQueue struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	mu        sync.RWMutex
	consumers map[uuid.UUID]chan mq.DestinationReleaseMessage
}

func NewRabbitDestinationReleaseMessageQueue(conn *amqp091.Connection) (mq.DestinationReleaseMessageQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	queueName := "destination_release_queue"
	err = DeclareQueueAndExchange(ch, queueName, exchangeName, destReleaseRoutingKey)
	if err != nil {
		ch.Close()
		return nil, err
	}

	return &rabbitDestinationReleaseMessageQueue{
		conn:      conn,
		channel:   ch,
		queueName: queueName,
		consumers: make(map[uuid.UUID]chan mq.DestinationReleaseMessage),
	}, nil
}

func (q *rabbitDestinationReleaseMessageQueue) Publish(msg mq.DestinationReleaseMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = q.channel.PublishWithContext(ctx,
		exchangeName,
		destReleaseRoutingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (q *rabbitDestinationReleaseMessageQueue) Subscribe(destinationID uuid.UUID) (uuid.UUID, <-chan mq.DestinationReleaseMessage, error) {
	msgs, err := q.channel.Consume(
		q.queueName,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	subscriberID := uuid.New()
	outputChan := make(chan mq.DestinationReleaseMessage)

	q.mu.Lock()
	q.consumers[subscriberID] = outputChan
	q.mu.Unlock()

	go func() {
		defer func() {
			q.mu.Lock()
			if ch, ok := q.consumers[subscriberID]; ok {
				close(ch)
				delete(q.consumers, subscriberID)
			}
			q.mu.Unlock()
		}()

		for d := range msgs {
			var msg mq.DestinationReleaseMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.Printf("Failed to unmarshal DestinationReleaseMessage: %v", err)
				continue
			}
			if destinationID != uuid.Nil && msg.DestinationID != destinationID {
				continue
			}

			q.mu.RLock()
			ch, ok := q.consumers[subscriberID]
			q.mu.RUnlock()
			if !ok {
				return
			}
			select {
			case ch <- msg:
			case <-time.After(1 * time.Second):
				log.Printf("Timeout sending message to DestinationReleaseMessage consumer %s. Skipping.", subscriberID)
			}
		}
	}()

	return subscriberID, outputChan, nil
}

func (q *rabbitDestinationReleaseMessageQueue) DeSubscribe(subscriberID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ch, ok := q.consumers[subscriberID]; ok {
		delete(q.consumers, subscriberID)
		close(ch)
		return nil
	}
	return fmt.Errorf("consumer with ID %s not found for queue %s", subscriberID, q.queueName)
}

// rabbitTripMessageQueueWrapper implements mq.TripMessageQueueWrapper for RabbitMQ.
type rabbitTripMessageQueueWrapper struct {
	UpdateMQArray [mq.ActionCnt]mq.TripUpdateMessageQueue
	ReleaseMQ     mq.DestinationReleaseMessageQueue
	conn          *amqp091.Connection // Keep a reference to the connection to close it later
}

// NewRabbitTripMessageQueueWrapper creates queues for every trip action plus
// the destination-release stream.
func NewRabbitTripMessageQueueWrapper(conn *amqp091.Connection) (mq.TripMessageQueueWrapper, error) {
	wrapper := &rabbitTripMessageQueueWrapper{
		conn: conn,
	}

	var err error
	for action := mq.ActionCreate; action < mq.ActionCnt; action++ {
		wrapper.UpdateMQArray[action], err = NewRabbitTripUpdateMessageQueue(action, conn)
		if err != nil {
			return nil, fmt.Errorf("failed to create trip update mq %d: %w", action, err)
		}
	}

	wrapper.ReleaseMQ, err = NewRabbitDestinationReleaseMessageQueue(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination release mq: %w", err)
	}

	return wrapper, nil
}

func (wrapper *rabbitTripMessageQueueWrapper) GetTripUpdateMessageQueue(action mq.Action) mq.TripUpdateMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.UpdateMQArray[action]
}

func (wrapper *rabbitTripMessageQueueWrapper) GetDestinationReleaseMessageQueue() mq.DestinationReleaseMessageQueue {
	return wrapper.ReleaseMQ
}

// Close closes all channels and the RabbitMQ connection.
func (wrapper *rabbitTripMessageQueueWrapper) Close() {
	for _, q := range wrapper.UpdateMQArray {
		if rmq, ok := q.(*rabbitTripUpdateMessageQueue); ok && rmq.channel != nil {
			rmq.channel.Close()
		}
	}
	if rmq, ok := wrapper.ReleaseMQ.(*rabbitDestinationReleaseMessageQueue); ok && rmq.channel != nil {
		rmq.channel.Close()
	}
	if wrapper.conn != nil {
		wrapper.conn.Close()
	}
}
