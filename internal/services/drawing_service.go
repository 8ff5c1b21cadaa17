package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/minzhou/babydraw/internal/cache"
	"github.com/minzhou/babydraw/internal/models"
	"github.com/minzhou/babydraw/internal/providers/image"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ErrDrawingNotFound indicates the requested drawing does not exist or is not
// visible to the requesting owner.
var ErrDrawingNotFound = errors.New("drawing service: drawing not found")

// DrawingService combines the orchestrator outputs into durable drawing
// records. Records are only created after a complete generation result is
// obtained; no partial record is ever written.
type DrawingService struct {
	db     *gorm.DB
	speech *SpeechService
	images *ImageService
}

// NewDrawingService wires the persistence layer with both orchestrators.
func NewDrawingService(db *gorm.DB, speechSvc *SpeechService, imageSvc *ImageService) (*DrawingService, error) {
	if db == nil {
		return nil, errors.New("drawing service: db is required")
	}
	if imageSvc == nil {
		return nil, errors.New("drawing service: image service is required")
	}
	return &DrawingService{db: db, speech: speechSvc, images: imageSvc}, nil
}

// CreateDrawingInput captures a text-initiated drawing request.
type CreateDrawingInput struct {
	Text    string
	OwnerID string
	Style   string
	Steps   int
}

// CreateOutcome is a persisted drawing along with generation metadata.
type CreateOutcome struct {
	Drawing   *models.Drawing
	Provider  string
	FromCache bool
}

// CreateFromText generates the drawing sequence for the prompt and persists
// the record. Any orchestration failure aborts before persistence.
func (s *DrawingService) CreateFromText(ctx context.Context, input CreateDrawingInput) (*CreateOutcome, error) {
	if s == nil {
		return nil, errors.New("drawing service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, errors.New("drawing service: text is required")
	}

	style := strings.TrimSpace(input.Style)
	if style == "" {
		style = image.DefaultStyle
	}
	steps := input.Steps
	if steps <= 0 {
		steps = 1
	}

	result, err := s.images.Generate(ctx, text, style, steps)
	if err != nil {
		return nil, err
	}

	drawing := models.Drawing{
		Title:       text,
		Description: fmt.Sprintf("使用%s风格绘制的%s", style, text),
		Prompt:      text,
		ImageURL:    result.FinalImageURL,
		OwnerID:     input.OwnerID,
		Style:       style,
		Steps:       len(result.StepImageURLs),
	}
	if err := drawing.SetStepImageURLs(result.StepImageURLs); err != nil {
		return nil, err
	}
	drawing.Normalise()

	// Unlike the cache, persistence failures are never swallowed.
	if err := s.db.WithContext(ctx).Create(&drawing).Error; err != nil {
		return nil, err
	}

	return &CreateOutcome{
		Drawing:   &drawing,
		Provider:  result.Provider,
		FromCache: result.FromCache,
	}, nil
}

// CreateFromAudioInput captures an audio-initiated drawing request.
type CreateFromAudioInput struct {
	Audio   []byte
	OwnerID string
	Style   string
	Steps   int
}

// CreateFromAudio recognises the audio first and then delegates to
// CreateFromText with the recognised text as prompt.
func (s *DrawingService) CreateFromAudio(ctx context.Context, input CreateFromAudioInput) (*CreateOutcome, error) {
	if s == nil {
		return nil, errors.New("drawing service: service not initialised")
	}
	if s.speech == nil {
		return nil, errors.New("drawing service: speech service is required")
	}
	ctx = ensuredContext(ctx)

	recognition, err := s.speech.Recognize(ctx, input.Audio)
	if err != nil {
		return nil, err
	}

	return s.CreateFromText(ctx, CreateDrawingInput{
		Text:    recognition.Text,
		OwnerID: input.OwnerID,
		Style:   input.Style,
		Steps:   input.Steps,
	})
}

// ListDrawingsOptions controls drawing listing. An empty OwnerID lists all
// owners; Limit is capped.
type ListDrawingsOptions struct {
	OwnerID string
	Skip    int
	Limit   int
}

// List returns drawings ordered most recent first, plus the total count for
// the same filter.
func (s *DrawingService) List(ctx context.Context, opts ListDrawingsOptions) ([]models.Drawing, int64, error) {
	if s == nil {
		return nil, 0, errors.New("drawing service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	skip := opts.Skip
	if skip < 0 {
		skip = 0
	}

	query := s.db.WithContext(ctx).Model(&models.Drawing{})
	if owner := strings.TrimSpace(opts.OwnerID); owner != "" {
		query = query.Where("owner_id = ?", owner)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var drawings []models.Drawing
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&drawings).Error; err != nil {
		return nil, 0, err
	}

	return drawings, total, nil
}

// Get retrieves a drawing by identifier.
func (s *DrawingService) Get(ctx context.Context, id string) (*models.Drawing, error) {
	if s == nil {
		return nil, errors.New("drawing service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrDrawingNotFound
	}

	var drawing models.Drawing
	if err := s.db.WithContext(ctx).First(&drawing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDrawingNotFound
		}
		return nil, err
	}
	return &drawing, nil
}

// Delete removes a drawing by identifier. A non-empty ownerID restricts the
// deletion to that owner's records; a mismatch leaves the record intact and
// reports false.
func (s *DrawingService) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	if s == nil {
		return false, errors.New("drawing service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}

	query := s.db.WithContext(ctx).Where("id = ?", id)
	if owner := strings.TrimSpace(ownerID); owner != "" {
		query = query.Where("owner_id = ?", owner)
	}

	result := query.Delete(&models.Drawing{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ServiceStatus summarises the backing services for the status endpoint.
type ServiceStatus struct {
	SpeechProvider string      `json:"speech_provider"`
	ImageProvider  string      `json:"image_provider"`
	CacheStats     cache.Stats `json:"cache_stats"`
	TotalDrawings  int64       `json:"total_drawings"`
}

// Status reports provider selection and storage statistics.
func (s *DrawingService) Status(ctx context.Context, store cache.Store) (ServiceStatus, error) {
	if s == nil {
		return ServiceStatus{}, errors.New("drawing service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	status := ServiceStatus{
		SpeechProvider: s.speech.Provider(),
		ImageProvider:  s.images.Provider(),
	}

	if store != nil {
		stats, err := store.Stats(ctx)
		if err != nil {
			return ServiceStatus{}, err
		}
		status.CacheStats = stats
	}

	if err := s.db.WithContext(ctx).Model(&models.Drawing{}).Count(&status.TotalDrawings).Error; err != nil {
		return ServiceStatus{}, err
	}

	return status, nil
}
