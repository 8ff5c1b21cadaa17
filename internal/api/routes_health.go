package api

import (
	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine) {
	health := handlers.Health()
	r.GET("/health", health)
	r.GET("/api/health", health)
}
