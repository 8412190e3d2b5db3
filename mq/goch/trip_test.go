package goch_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wander/mq/goch"
	"wander/mq/mq"
)

func receive[M any](t *testing.T, ch <-chan M) M {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed before a message arrived")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		panic("unreachable")
	}
}

func TestTripUpdateQueueTopicFiltering(t *testing.T) {
	q := goch.NewChannelTripUpdateMessageQueue(mq.ActionUpdate)
	assert.Equal(t, mq.ActionUpdate, q.GetAction())

	tripA := uuid.New()
	tripB := uuid.New()

	subA, chA, err := q.Subscribe(tripA)
	require.NoError(t, err)
	_, chAll, err := q.Subscribe(uuid.Nil)
	require.NoError(t, err)

	require.NoError(t, q.Publish(mq.TripUpdateMessage{TripID: tripB, Name: "B Trip"}))
	require.NoError(t, q.Publish(mq.TripUpdateMessage{TripID: tripA, Name: "A Trip"}))

	// The filtered subscriber only sees its own trip.
	got := receive(t, chA)
	assert.Equal(t, tripA, got.TripID)

	// The wildcard subscriber sees both, in publish order.
	assert.Equal(t, tripB, receive(t, chAll).TripID)
	assert.Equal(t, tripA, receive(t, chAll).TripID)

	require.NoError(t, q.DeSubscribe(subA))
	_, ok := <-chA
	assert.False(t, ok, "channel should close on DeSubscribe")
}

func TestDeSubscribeUnknownID(t *testing.T) {
	q := goch.NewChannelDestinationReleaseMessageQueue()
	err := q.DeSubscribe(uuid.New())
	assert.ErrorIs(t, err, goch.ErrSubscriberNotFound)
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	q := goch.NewChannelDestinationReleaseMessageQueue()
	destID := uuid.New()

	_, ch, err := q.Subscribe(destID)
	require.NoError(t, err)

	// Publish far past the buffer without anyone draining; publisher must
	// not stall.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = q.Publish(mq.DestinationReleaseMessage{DestinationID: destID})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	// The buffered prefix is still there.
	assert.Equal(t, destID, receive(t, ch).DestinationID)
}

func TestWrapperActionLookup(t *testing.T) {
	wrapper := goch.NewGoChanTripMessageQueueWrapper()

	for action := mq.ActionCreate; action < mq.ActionCnt; action++ {
		q := wrapper.GetTripUpdateMessageQueue(action)
		require.NotNil(t, q)
		assert.Equal(t, action, q.GetAction())
	}
	assert.Nil(t, wrapper.GetTripUpdateMessageQueue(mq.ActionCnt))
	assert.NotNil(t, wrapper.GetDestinationReleaseMessageQueue())
}

func TestSubscribeProcessorTransformsAndCleansUp(t *testing.T) {
	q := goch.NewChannelTripUpdateMessageQueue(mq.ActionCreate)
	tripID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan string, 4)
	mq.SubscribeProcessor(tripID, ctx, q, func(msg mq.TripUpdateMessage) (string, bool, error) {
		if msg.Name == "" {
			return "", true, nil
		}
		return msg.Name, false, nil
	}, out)

	// Give the processor a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, q.Publish(mq.TripUpdateMessage{TripID: tripID, Name: "Tour"}))
	assert.Equal(t, "Tour", receive(t, out))

	// Skipped messages never surface.
	require.NoError(t, q.Publish(mq.TripUpdateMessage{TripID: tripID}))
	require.NoError(t, q.Publish(mq.TripUpdateMessage{TripID: tripID, Name: "After Skip"}))
	assert.Equal(t, "After Skip", receive(t, out))

	// Cancellation closes the output stream.
	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-out:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
