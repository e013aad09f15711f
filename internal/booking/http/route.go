package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) error {
	if err := registerValidators(); err != nil {
		return err
	}

	group := g.Group("/bookings")

	group.Use(authMiddleware)
	{
		group.POST("", h.Create)
		group.GET("", h.ListMine)
		group.GET("/owner", h.ListOwned)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.UpdateApproval)
		group.PATCH("/:id/cancel", h.Cancel)
		group.DELETE("/:id", h.Delete)
	}
	return nil
}
