package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all user-related routes (including Auth).
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware gin.HandlerFunc) {
	authGroup := g.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	g.GET("/me", authMiddleware, h.Me)

	usersGroup := g.Group("/users", authMiddleware)
	{
		usersGroup.GET("/:id", h.Get)
	}
}
