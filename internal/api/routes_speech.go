package api

import (
	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/handlers"
	"github.com/minzhou/babydraw/internal/services"
)

func registerSpeechRoutes(api *gin.RouterGroup, service *services.SpeechService, maxAudioBytes int64) error {
	handler, err := handlers.NewSpeechHandler(service, maxAudioBytes)
	if err != nil {
		return err
	}

	api.POST("/speech/recognize", handler.Recognize)
	return nil
}
