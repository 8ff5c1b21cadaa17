package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/cache"
	"github.com/minzhou/babydraw/internal/models"
	"github.com/minzhou/babydraw/internal/services"
	appErrors "github.com/minzhou/babydraw/pkg/errors"
	"github.com/minzhou/babydraw/pkg/response"
)

// DrawingHandler exposes drawing creation and management over HTTP.
type DrawingHandler struct {
	service  *services.DrawingService
	store    cache.Store
	maxBytes int64
}

// NewDrawingHandler constructs a drawing handler.
func NewDrawingHandler(service *services.DrawingService, store cache.Store, maxBytes int64) (*DrawingHandler, error) {
	if service == nil {
		return nil, errors.New("drawing handler: service is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAudioBytes
	}
	return &DrawingHandler{service: service, store: store, maxBytes: maxBytes}, nil
}

type createDrawingRequest struct {
	Text  string `json:"text" validate:"required,min=1,max=500"`
	Style string `json:"style" validate:"omitempty,max=50"`
	Steps int    `json:"steps" validate:"omitempty,min=1,max=10"`
}

type drawingResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Prompt      string   `json:"prompt"`
	ImageURL    string   `json:"image_url"`
	StepImages  []string `json:"step_images"`
	OwnerID     string   `json:"owner_id"`
	Style       string   `json:"style"`
	Steps       int      `json:"steps"`
	CreatedAt   string   `json:"created_at"`
	Provider    string   `json:"provider,omitempty"`
	FromCache   bool     `json:"from_cache,omitempty"`
}

func newDrawingResponse(d *models.Drawing) drawingResponse {
	steps := d.StepImageURLs()
	return drawingResponse{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Prompt:      d.Prompt,
		ImageURL:    d.ImageURL,
		StepImages:  steps,
		OwnerID:     d.OwnerID,
		Style:       d.Style,
		Steps:       d.Steps,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
}

// Create generates a drawing sequence from a text prompt and persists it.
func (h *DrawingHandler) Create(c *gin.Context) {
	var req createDrawingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	outcome, err := h.service.CreateFromText(requestContext(c), services.CreateDrawingInput{
		Text:    req.Text,
		OwnerID: ownerID(c),
		Style:   req.Style,
		Steps:   req.Steps,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := newDrawingResponse(outcome.Drawing)
	resp.Provider = outcome.Provider
	resp.FromCache = outcome.FromCache
	response.Success(c, http.StatusCreated, resp)
}

// CreateFromAudio recognises a multipart "audio" upload and generates a
// drawing sequence from the recognised text.
func (h *DrawingHandler) CreateFromAudio(c *gin.Context) {
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
	if err != nil || len(audio) == 0 {
		response.Error(c, appErrors.NewBadRequest("audio file could not be read"))
		return
	}
	if int64(len(audio)) > h.maxBytes {
		response.Error(c, appErrors.NewBadRequest("audio file exceeds the upload limit"))
		return
	}

	steps := parseIntQuery(c, "steps", 0)
	style := strings.TrimSpace(c.Query("style"))

	outcome, err := h.service.CreateFromAudio(requestContext(c), services.CreateFromAudioInput{
		Audio:   audio,
		OwnerID: ownerID(c),
		Style:   style,
		Steps:   steps,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := newDrawingResponse(outcome.Drawing)
	resp.Provider = outcome.Provider
	resp.FromCache = outcome.FromCache
	response.Success(c, http.StatusCreated, resp)
}

// List returns drawings newest first, optionally filtered by owner.
func (h *DrawingHandler) List(c *gin.Context) {
	skip := parseIntQuery(c, "skip", 0)
	limit := parseIntQuery(c, "limit", 20)

	drawings, total, err := h.service.List(requestContext(c), services.ListDrawingsOptions{
		OwnerID: strings.TrimSpace(c.Query("owner_id")),
		Skip:    skip,
		Limit:   limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]drawingResponse, 0, len(drawings))
	for i := range drawings {
		items = append(items, newDrawingResponse(&drawings[i]))
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Skip:  skip,
		Limit: limit,
		Total: total,
	})
}

// Get returns a single drawing by id.
func (h *DrawingHandler) Get(c *gin.Context) {
	drawing, err := h.service.Get(requestContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrDrawingNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, newDrawingResponse(drawing))
}

// Delete removes a drawing owned by the caller.
func (h *DrawingHandler) Delete(c *gin.Context) {
	deleted, err := h.service.Delete(requestContext(c), c.Param("id"), ownerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Status reports provider selection and storage statistics.
func (h *DrawingHandler) Status(c *gin.Context) {
	status, err := h.service.Status(requestContext(c), h.store)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}
