package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers item-related routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/items")

	group.Use(authMiddleware)
	{
		group.GET("", h.ListMine)
		group.GET("/search", h.Search)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.PATCH("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}
