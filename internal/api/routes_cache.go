package api

import (
	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/cache"
	"github.com/minzhou/babydraw/internal/handlers"
)

func registerCacheRoutes(api *gin.RouterGroup, store cache.Store) error {
	handler, err := handlers.NewCacheHandler(store)
	if err != nil {
		return err
	}

	group := api.Group("/cache")
	{
		group.POST("", handler.Set)
		group.GET("/stats", handler.Stats)
		group.GET("/:key", handler.Get)
		group.DELETE("/:key", handler.Delete)
	}
	return nil
}
