package web_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbt "wander/db/db"
	"wander/db/mem"
	"wander/mq/goch"
	"wander/trip"
	"wander/web"
)

type webFixture struct {
	router *gin.Engine
	users  *mem.InMemoryUserDBWrapper
	dests  *mem.InMemoryDestinationDBWrapper

	owner   *dbt.User
	member  *dbt.User
	outside *dbt.User
	dest    *dbt.Destination
}

func setupWebTest(t *testing.T) *webFixture {
	gin.SetMode(gin.TestMode)

	f := &webFixture{
		users: mem.NewInMemoryUserDBWrapper(),
		dests: mem.NewInMemoryDestinationDBWrapper(),
	}
	nodes := mem.NewInMemoryTripNodeDBWrapper()
	service := trip.NewService(nodes, f.users, f.dests, goch.NewGoChanTripMessageQueueWrapper())
	f.router = web.NewRouter(service)

	f.owner = &dbt.User{ID: uuid.New(), Name: "Alice"}
	f.member = &dbt.User{ID: uuid.New(), Name: "Bob"}
	f.outside = &dbt.User{ID: uuid.New(), Name: "Mallory"}
	for _, u := range []*dbt.User{f.owner, f.member, f.outside} {
		require.NoError(t, f.users.CreateUser(u))
	}
	f.dest = &dbt.Destination{ID: uuid.New(), Name: "Lisbon"}
	require.NoError(t, f.dests.CreateDestination(f.dest))
	return f
}

func (f *webFixture) request(t *testing.T, method, path string, asUser *dbt.User, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if asUser != nil {
		req.Header.Set("X-User-ID", asUser.ID.String())
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *webFixture) tripPayload(users ...trip.RolePayload) trip.TripPayload {
	return trip.TripPayload{
		Name: "Tour",
		TripNodes: []trip.NodePayload{
			{NodeType: trip.NodeTypeLeaf, DestinationID: f.dest.ID},
		},
		UserIDs: users,
	}
}

func decodeNode(t *testing.T, w *httptest.ResponseRecorder) web.TripNodeResponse {
	t.Helper()
	var resp web.TripNodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthNeedsNoAuth(t *testing.T) {
	f := setupWebTest(t)
	w := f.request(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHeaderContract(t *testing.T) {
	f := setupWebTest(t)

	// Test 1: no header
	w := f.request(t, http.MethodPost, "/trips", nil, f.tripPayload())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test 2: malformed header
	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString("{}"))
	req.Header.Set("X-User-ID", "not-a-uuid")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test 3: well-formed id naming no user is a failed lookup, not an
	// auth failure
	ghost := &dbt.User{ID: uuid.New(), Name: "Ghost"}
	w = f.request(t, http.MethodPost, "/trips", ghost,
		f.tripPayload(trip.RolePayload{UserID: f.owner.ID, Role: string(dbt.RoleTripOwner)}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateTripEndToEnd(t *testing.T) {
	f := setupWebTest(t)

	w := f.request(t, http.MethodPost, "/trips", f.owner,
		f.tripPayload(trip.RolePayload{UserID: f.owner.ID, Role: string(dbt.RoleTripOwner)}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeNode(t, w)
	assert.NotEqual(t, uuid.Nil, created.TripNodeID)
	require.Len(t, created.Users, 1)
	assert.Equal(t, f.owner.ID, created.Users[0].UserID)
	assert.Equal(t, "Alice", created.Users[0].Name)
	require.Len(t, created.UserRoles, 1)
	assert.Equal(t, string(dbt.RoleTripOwner), created.UserRoles[0].Role)

	// A follow-up GET returns the identical single-child structure.
	w = f.request(t, http.MethodGet, "/trips/"+created.TripNodeID.String(), f.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeNode(t, w)
	assert.Equal(t, created.TripNodeID, got.TripNodeID)
	require.Len(t, got.TripNodes, 1)
	assert.Equal(t, trip.NodeTypeLeaf, got.TripNodes[0].NodeType)
	require.NotNil(t, got.TripNodes[0].Destination)
	assert.Equal(t, f.dest.ID, got.TripNodes[0].Destination.DestinationID)
	assert.Equal(t, "Lisbon", got.TripNodes[0].Destination.Name)
}

func TestStatusContract(t *testing.T) {
	f := setupWebTest(t)

	// Create a trip with owner and member.
	w := f.request(t, http.MethodPost, "/trips", f.owner, f.tripPayload(
		trip.RolePayload{UserID: f.owner.ID, Role: string(dbt.RoleTripOwner)},
		trip.RolePayload{UserID: f.member.ID, Role: string(dbt.RoleTripMember)},
	))
	require.Equal(t, http.StatusCreated, w.Code)
	tripID := decodeNode(t, w).TripNodeID.String()

	// 400: structural validation failure
	w = f.request(t, http.MethodPost, "/trips", f.owner, trip.TripPayload{Name: "Tour"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 400: malformed body
	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString("{not json"))
	req.Header.Set("X-User-ID", f.owner.ID.String())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 403: member may read but not edit
	w = f.request(t, http.MethodPut, "/trips/"+tripID, f.member, f.tripPayload(
		trip.RolePayload{UserID: f.owner.ID, Role: string(dbt.RoleTripOwner)},
	))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 403: outsider may not even read
	w = f.request(t, http.MethodGet, "/trips/"+tripID, f.outside, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 404: unknown trip
	w = f.request(t, http.MethodGet, "/trips/"+uuid.NewString(), f.owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 400: restore of a live trip
	w = f.request(t, http.MethodPut, fmt.Sprintf("/trips/%s/restore", tripID), f.owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 403: member may not delete
	w = f.request(t, http.MethodDelete, "/trips/"+tripID, f.member, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 200: owner deletes
	w = f.request(t, http.MethodDelete, "/trips/"+tripID, f.owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 404: deleted trips are hidden from reads
	w = f.request(t, http.MethodGet, "/trips/"+tripID, f.owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 200: restore within the undo window
	w = f.request(t, http.MethodPut, fmt.Sprintf("/trips/%s/restore", tripID), f.owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	restored := decodeNode(t, w)
	assert.Len(t, restored.TripNodes, 1)
}

func TestErrorBodyCarriesShortMessage(t *testing.T) {
	f := setupWebTest(t)

	w := f.request(t, http.MethodPost, "/trips", f.owner, trip.TripPayload{Name: "Tour"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
	assert.NotContains(t, body["error"], "goroutine", "no stack traces in responses")
}
