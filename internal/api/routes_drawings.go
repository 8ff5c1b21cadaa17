package api

import (
	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/cache"
	"github.com/minzhou/babydraw/internal/handlers"
	"github.com/minzhou/babydraw/internal/services"
)

func registerDrawingRoutes(api *gin.RouterGroup, service *services.DrawingService, store cache.Store, maxAudioBytes int64) error {
	handler, err := handlers.NewDrawingHandler(service, store, maxAudioBytes)
	if err != nil {
		return err
	}

	drawings := api.Group("/drawings")
	{
		drawings.POST("", handler.Create)
		drawings.POST("/from-audio", handler.CreateFromAudio)
		drawings.GET("", handler.List)
		drawings.GET("/:id", handler.Get)
		drawings.DELETE("/:id", handler.Delete)
	}

	api.GET("/status", handler.Status)
	return nil
}
