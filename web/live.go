package web

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	odiff "github.com/r3labs/diff/v3"

	"wander/mq/mq"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// allow all origins for WebSocket connections
		// should only in dev
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// LiveEvent is one trip change pushed over the live feed socket.
type LiveEvent struct {
	Action  string          `json:"action"`
	TripID  uuid.UUID       `json:"tripNodeId"`
	Name    string          `json:"name,omitempty"`
	ActorID uuid.UUID       `json:"actorId"`
	Changes odiff.Changelog `json:"changes,omitempty"`
}

// LiveFeed upgrades the request to a websocket and streams every committed
// change of one trip until the client hangs up. The caller needs read
// access, same as GET.
func (h *Handler) LiveFeed(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := h.Service.GetTrip(actorID(c), id); err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("live feed: upgrade trip %s: %v", id, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	merged := make(chan LiveEvent, 16)
	var wg sync.WaitGroup
	for action := mq.ActionCreate; action < mq.ActionCnt; action++ {
		queue := h.Service.MQ.GetTripUpdateMessageQueue(action)
		if queue == nil {
			continue
		}
		out := make(chan LiveEvent, 4)
		mq.SubscribeProcessor(id, ctx, queue, liveTransform(action), out)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range out {
				select {
				case merged <- event:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	// the read pump only watches for the client closing the socket
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-merged:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// liveTransform turns queue messages into wire events, dropping empties.
func liveTransform(action mq.Action) func(msg mq.TripUpdateMessage) (LiveEvent, bool, error) {
	return func(msg mq.TripUpdateMessage) (LiveEvent, bool, error) {
		if msg.TripID == uuid.Nil {
			return LiveEvent{}, true, nil
		}
		return LiveEvent{
			Action:  action.String(),
			TripID:  msg.TripID,
			Name:    msg.Name,
			ActorID: msg.ActorID,
			Changes: msg.Changes,
		}, false, nil
	}
}
