package api

import (
	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/handlers"
	"github.com/minzhou/babydraw/internal/services"
)

func registerImageRoutes(api *gin.RouterGroup, service *services.ImageService) error {
	handler, err := handlers.NewImageHandler(service)
	if err != nil {
		return err
	}

	api.POST("/images/generate", handler.Generate)
	return nil
}
