package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/services"
	appErrors "github.com/minzhou/babydraw/pkg/errors"
	"github.com/minzhou/babydraw/pkg/response"
)

// DefaultMaxAudioBytes caps uploaded audio at 10 MiB.
const DefaultMaxAudioBytes = 10 << 20

// SpeechHandler exposes speech recognition over HTTP.
type SpeechHandler struct {
	service  *services.SpeechService
	maxBytes int64
}

// NewSpeechHandler constructs a speech handler.
func NewSpeechHandler(service *services.SpeechService, maxBytes int64) (*SpeechHandler, error) {
	if service == nil {
		return nil, errors.New("speech handler: service is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAudioBytes
	}
	return &SpeechHandler{service: service, maxBytes: maxBytes}, nil
}

type recognizeResponse struct {
	Text      string `json:"text"`
	Provider  string `json:"provider"`
	FromCache bool   `json:"from_cache"`
}

// Recognize accepts a multipart "audio" file and returns the recognised text.
func (h *SpeechHandler) Recognize(c *gin.Context) {
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("audio file is required"))
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		response.Error(c, appErrors.NewBadRequest("audio file exceeds the upload limit"))
		return
	}

	audio, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("audio file could not be read"))
		return
	}
	if int64(len(audio)) > h.maxBytes {
		response.Error(c, appErrors.NewBadRequest("audio file exceeds the upload limit"))
		return
	}
	if len(audio) == 0 {
		response.Error(c, appErrors.NewBadRequest("audio file is empty"))
		return
	}

	result, err := h.service.Recognize(requestContext(c), audio)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, recognizeResponse{
		Text:      result.Text,
		Provider:  result.Provider,
		FromCache: result.FromCache,
	})
}
