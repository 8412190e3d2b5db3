package trip_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"wander/trip"
)

func leafPayload(destID uuid.UUID) trip.NodePayload {
	return trip.NodePayload{
		NodeType:      trip.NodeTypeLeaf,
		DestinationID: destID,
	}
}

func timedLeaf(destID uuid.UUID, arrival, departure *time.Time) trip.NodePayload {
	p := leafPayload(destID)
	p.ArrivalDate = arrival
	p.DepartureDate = departure
	return p
}

func timePtr(t time.Time) *time.Time { return &t }

func TestValidateTripStructure(t *testing.T) {
	dest := uuid.New()

	// Test 1: minimal valid payload
	err := trip.ValidateTrip(trip.TripPayload{
		Name:      "Tour",
		TripNodes: []trip.NodePayload{leafPayload(dest)},
	})
	assert.NoError(t, err)

	// Test 2: empty name
	err = trip.ValidateTrip(trip.TripPayload{
		TripNodes: []trip.NodePayload{leafPayload(dest)},
	})
	assert.Error(t, err)
	assert.IsType(t, &trip.ValidationError{}, err)

	// Test 3: no destination leaf anywhere
	err = trip.ValidateTrip(trip.TripPayload{
		Name: "Empty Tour",
		TripNodes: []trip.NodePayload{
			{NodeType: trip.NodeTypeComposite, Name: "Sub"},
		},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no destination")

	// Test 4: leaf without a destination reference
	err = trip.ValidateTrip(trip.TripPayload{
		Name:      "Tour",
		TripNodes: []trip.NodePayload{{NodeType: trip.NodeTypeLeaf}},
	})
	assert.Error(t, err)

	// Test 5: unknown node type
	err = trip.ValidateTrip(trip.TripPayload{
		Name:      "Tour",
		TripNodes: []trip.NodePayload{{NodeType: "TripSomething"}},
	})
	assert.Error(t, err)

	// Test 6: a nested leaf counts
	err = trip.ValidateTrip(trip.TripPayload{
		Name: "Nested Tour",
		TripNodes: []trip.NodePayload{
			{
				NodeType:  trip.NodeTypeComposite,
				Name:      "Sub",
				TripNodes: []trip.NodePayload{leafPayload(dest)},
			},
		},
	})
	assert.NoError(t, err)

	// Test 7: unknown role value
	err = trip.ValidateTrip(trip.TripPayload{
		Name:      "Tour",
		TripNodes: []trip.NodePayload{leafPayload(dest)},
		UserIDs:   []trip.RolePayload{{UserID: uuid.New(), Role: "TRIP_KING"}},
	})
	assert.Error(t, err)

	// Test 8: a sub trip reference needs no name and counts as a destination
	err = trip.ValidateTrip(trip.TripPayload{
		Name:      "Tour",
		TripNodes: []trip.NodePayload{{NodeType: trip.NodeTypeComposite, TripNodeID: uuid.New()}},
	})
	assert.NoError(t, err)
}

func TestValidateTripContiguity(t *testing.T) {
	dest := uuid.New()
	day1 := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day3 := day1.AddDate(0, 0, 2)

	// Test 1: departure meets the next arrival exactly
	err := trip.ValidateTrip(trip.TripPayload{
		Name: "Tight Tour",
		TripNodes: []trip.NodePayload{
			timedLeaf(dest, timePtr(day1), timePtr(day2)),
			timedLeaf(dest, timePtr(day2), timePtr(day3)),
		},
	})
	assert.NoError(t, err)

	// Test 2: a gap between departure and the next arrival fails
	err = trip.ValidateTrip(trip.TripPayload{
		Name: "Gapped Tour",
		TripNodes: []trip.NodePayload{
			timedLeaf(dest, timePtr(day1), timePtr(day1)),
			timedLeaf(dest, timePtr(day3), timePtr(day3)),
		},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "contiguous")

	// Test 3: missing dates skip the check
	err = trip.ValidateTrip(trip.TripPayload{
		Name: "Loose Tour",
		TripNodes: []trip.NodePayload{
			timedLeaf(dest, timePtr(day1), nil),
			timedLeaf(dest, timePtr(day3), nil),
		},
	})
	assert.NoError(t, err)

	// Test 4: the check crosses composite boundaries in listed order
	err = trip.ValidateTrip(trip.TripPayload{
		Name: "Nested Gap Tour",
		TripNodes: []trip.NodePayload{
			{
				NodeType:  trip.NodeTypeComposite,
				Name:      "Leg One",
				TripNodes: []trip.NodePayload{timedLeaf(dest, timePtr(day1), timePtr(day1))},
			},
			timedLeaf(dest, timePtr(day3), timePtr(day3)),
		},
	})
	assert.Error(t, err)
}

func TestVerifyName(t *testing.T) {
	assert.True(t, trip.VerifyName("Summer Trip 2026"))
	assert.True(t, trip.VerifyName("trip_v2.draft-1"))
	assert.False(t, trip.VerifyName(""))
	assert.False(t, trip.VerifyName("DROP TABLE trips;"))
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, trip.VerifyName(string(long)))
}
