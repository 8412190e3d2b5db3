package web

import (
	"github.com/gin-gonic/gin"

	"wander/trip"
)

// NewRouter wires the middleware chain and the trip routes around a
// service. Exposed separately from Serve so tests can drive the router
// with httptest.
func NewRouter(service *trip.Service) *gin.Engine {
	r := gin.New()
	setupMiddlewares(r)
	r.Use(TripDataLoaderInjectionMiddleware(service.Nodes, service.Users, service.Destinations))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	handler := NewHandler(service)
	trips := r.Group("/trips", UserAuthMiddleware())
	{
		trips.POST("", handler.CreateTrip)
		trips.GET("/:id", handler.GetTrip)
		trips.PUT("/:id", handler.UpdateTrip)
		trips.DELETE("/:id", handler.DeleteTrip)
		trips.PUT("/:id/restore", handler.RestoreTrip)
		trips.GET("/:id/live", handler.LiveFeed)
	}
	return r
}

// Serve runs the HTTP server on the given port. Blocks until the listener
// fails.
func Serve(port string, service *trip.Service) error {
	r := NewRouter(service)
	return r.Run(":" + port)
}
