package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/services"
	"github.com/minzhou/babydraw/pkg/response"
)

// ImageHandler exposes drawing sequence generation over HTTP.
type ImageHandler struct {
	service *services.ImageService
}

// NewImageHandler constructs an image handler.
func NewImageHandler(service *services.ImageService) (*ImageHandler, error) {
	if service == nil {
		return nil, errors.New("image handler: service is required")
	}
	return &ImageHandler{service: service}, nil
}

type generateImageRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=500"`
	Style  string `json:"style" validate:"omitempty,max=50"`
	Steps  int    `json:"steps" validate:"omitempty,min=1,max=10"`
}

type generateImageResponse struct {
	FinalImageURL string   `json:"final_image_url"`
	StepImages    []string `json:"step_images"`
	Prompt        string   `json:"prompt"`
	Provider      string   `json:"provider"`
	FromCache     bool     `json:"from_cache"`
}

// Generate produces the final image plus one image per tutorial step.
func (h *ImageHandler) Generate(c *gin.Context) {
	var req generateImageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Generate(requestContext(c), req.Prompt, req.Style, req.Steps)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, generateImageResponse{
		FinalImageURL: result.FinalImageURL,
		StepImages:    result.StepImageURLs,
		Prompt:        req.Prompt,
		Provider:      result.Provider,
		FromCache:     result.FromCache,
	})
}
