package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	g.GET("/availability", authMiddleware, h.Availability)

	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)                       // List bookings
		group.GET("/calendar", h.Calendar)          // Month view grouped by day
		group.POST("/conflicts", h.CheckConflict)   // Conflict pre-check
		group.POST("", h.Create)                    // Create booking
		group.POST("/recurring", h.CreateRecurring) // Create booking series
		group.GET("/:id", h.Get)                    // Get booking details
		group.PATCH("/:id", h.Update)               // Reschedule, change status or details
		group.DELETE("/:id", h.Delete)              // Delete booking
	}
}
