package web

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	dbt "wander/db/db"
	"wander/trip"
)

// Handler holds the handlers behind the trip routes.
type Handler struct {
	Service *trip.Service
}

func NewHandler(service *trip.Service) *Handler {
	return &Handler{Service: service}
}

// UserResponse is a resolved collaborator in a trip response.
type UserResponse struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name,omitempty"`
}

// DestinationResponse is a resolved destination in a leaf response.
type DestinationResponse struct {
	DestinationID uuid.UUID `json:"destinationId"`
	Name          string    `json:"name,omitempty"`
	IsPublic      bool      `json:"isPublic"`
}

// TripNodeResponse mirrors the request payload shape, with ids assigned and
// users and destinations resolved to records.
type TripNodeResponse struct {
	TripNodeID uuid.UUID `json:"tripNodeId"`
	NodeType   string    `json:"nodeType"`

	Name      string             `json:"name,omitempty"`
	TripNodes []TripNodeResponse `json:"tripNodes,omitempty"`
	Users     []UserResponse     `json:"users,omitempty"`
	UserRoles []trip.RolePayload `json:"userRoles,omitempty"`

	Destination   *DestinationResponse `json:"destination,omitempty"`
	ArrivalDate   *time.Time           `json:"arrivalDate,omitempty"`
	ArrivalTime   *int                 `json:"arrivalTime,omitempty"`
	DepartureDate *time.Time           `json:"departureDate,omitempty"`
	DepartureTime *int                 `json:"departureTime,omitempty"`
}

func (h *Handler) CreateTrip(c *gin.Context) {
	var payload trip.TripPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed trip payload"})
		return
	}
	tree, err := h.Service.CreateTrip(actorID(c), payload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildNodeResponse(c, tree))
}

func (h *Handler) GetTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tree, err := h.Service.GetTrip(actorID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildNodeResponse(c, tree))
}

func (h *Handler) UpdateTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var payload trip.TripPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed trip payload"})
		return
	}
	tree, err := h.Service.UpdateTrip(actorID(c), id, payload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildNodeResponse(c, tree))
}

func (h *Handler) DeleteTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Service.DeleteTrip(actorID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tripNodeId": id, "deleted": true})
}

func (h *Handler) RestoreTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tree, err := h.Service.RestoreTrip(actorID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildNodeResponse(c, tree))
}

// actorID returns the authenticated user id set by UserAuthMiddleware.
func actorID(c *gin.Context) uuid.UUID {
	return c.MustGet(userIDContextKey).(uuid.UUID)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed trip node id"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError translates service failures into the status contract. Internal
// details are logged, never sent to the client.
func writeError(c *gin.Context, err error) {
	var vErr *trip.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
	case errors.Is(err, dbt.ErrNotDeleted):
		c.JSON(http.StatusBadRequest, gin.H{"error": "trip is not deleted"})
	case errors.Is(err, trip.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	case errors.Is(err, dbt.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Printf("trip handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// buildNodeResponse converts a domain tree into the response shape,
// resolving collaborator and destination records through the request's
// data loaders. A failed lookup degrades to the bare id.
func buildNodeResponse(c *gin.Context, node *dbt.TripNode) TripNodeResponse {
	loader := tripLoader(c)

	if node.Kind == dbt.NodeLeaf {
		resp := TripNodeResponse{
			TripNodeID:    node.ID,
			NodeType:      trip.NodeTypeLeaf,
			ArrivalDate:   node.ArrivalDate,
			ArrivalTime:   node.ArrivalTime,
			DepartureDate: node.DepartureDate,
			DepartureTime: node.DepartureTime,
		}
		resp.Destination = &DestinationResponse{DestinationID: node.DestinationID}
		if loader != nil {
			if dest, err := loader.GetDestinationList.Load(c.Request.Context(), node.DestinationID); err == nil && dest != nil {
				resp.Destination.Name = dest.Name
				resp.Destination.IsPublic = dest.IsPublic
			}
		}
		return resp
	}

	resp := TripNodeResponse{
		TripNodeID: node.ID,
		NodeType:   trip.NodeTypeComposite,
		Name:       node.Name,
	}
	for _, child := range node.Children {
		resp.TripNodes = append(resp.TripNodes, buildNodeResponse(c, child))
	}
	for _, userID := range node.Users {
		entry := UserResponse{UserID: userID}
		if loader != nil {
			if user, err := loader.GetUserList.Load(c.Request.Context(), userID); err == nil && user != nil {
				entry.Name = user.Name
			}
		}
		resp.Users = append(resp.Users, entry)
	}
	for _, role := range node.Roles {
		resp.UserRoles = append(resp.UserRoles, trip.RolePayload{UserID: role.UserID, Role: string(role.Role)})
	}
	return resp
}

func tripLoader(c *gin.Context) *dbt.TripDataLoader {
	value, ok := c.Get(string(dbt.DataLoaderKeyTripData))
	if !ok {
		return nil
	}
	loader, ok := value.(*dbt.TripDataLoader)
	if !ok {
		return nil
	}
	return loader
}
