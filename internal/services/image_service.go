package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minzhou/babydraw/internal/cache"
	"github.com/minzhou/babydraw/internal/providers/image"
	apperrors "github.com/minzhou/babydraw/pkg/errors"
	"github.com/minzhou/babydraw/pkg/logger"
	"github.com/minzhou/babydraw/pkg/metrics"
)

const (
	defaultPollInterval = time.Second
	defaultPollBudget   = 60 * time.Second

	// Image results are expensive and stable, so they live much longer in the
	// cache than recognition results.
	defaultImageTTLMultiplier = 24

	// MaxSteps bounds the number of tutorial steps a single request may ask for.
	MaxSteps = 10
)

// GenerationResult is a completed step-by-step generation: one final image
// plus the ordered step images.
type GenerationResult struct {
	FinalImageURL string   `json:"final_image_url"`
	StepImageURLs []string `json:"step_images"`
	Provider      string   `json:"provider,omitempty"`
	FromCache     bool     `json:"-"`
}

// ImageService orchestrates step-by-step drawing generation: fingerprint,
// cache lookup, the submit/poll protocol per image, and cache population.
type ImageService struct {
	store        cache.Store
	generator    image.Generator
	selectErr    error
	cacheTTL     time.Duration
	pollInterval time.Duration
	pollBudget   time.Duration
	log          *zap.Logger
}

// ImageServiceOption customises the ImageService.
type ImageServiceOption func(*ImageService)

// WithImageCacheTTL overrides the TTL applied to cached generation results.
func WithImageCacheTTL(ttl time.Duration) ImageServiceOption {
	return func(s *ImageService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithPollInterval overrides the delay between task polls.
func WithPollInterval(interval time.Duration) ImageServiceOption {
	return func(s *ImageService) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithPollBudget overrides the wall-clock budget for a single generation task.
func WithPollBudget(budget time.Duration) ImageServiceOption {
	return func(s *ImageService) {
		if budget > 0 {
			s.pollBudget = budget
		}
	}
}

// WithGenerator injects a pre-built generator, bypassing provider selection.
// Primarily for testing.
func WithGenerator(generator image.Generator) ImageServiceOption {
	return func(s *ImageService) {
		if generator != nil {
			s.generator = generator
			s.selectErr = nil
		}
	}
}

// NewImageService resolves the active provider from cfg and wires the cache
// store. As with speech, a missing provider configuration surfaces on each
// Generate call rather than failing construction.
func NewImageService(store cache.Store, cfg image.Config, opts ...ImageServiceOption) (*ImageService, error) {
	if store == nil {
		return nil, errors.New("image service: cache store is required")
	}

	svc := &ImageService{
		store:        store,
		cacheTTL:     cache.DefaultTTL * defaultImageTTLMultiplier,
		pollInterval: defaultPollInterval,
		pollBudget:   defaultPollBudget,
		log:          logger.WithModule("image"),
	}
	svc.generator, svc.selectErr = image.Select(cfg)

	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Provider names the selected provider, or "none" when unconfigured.
func (s *ImageService) Provider() string {
	if s == nil || s.generator == nil {
		return "none"
	}
	return s.generator.Name()
}

// cachedGeneration is the canonical cache payload for one generation result.
type cachedGeneration struct {
	FinalImageURL string   `json:"final_image_url"`
	StepImages    []string `json:"step_images"`
}

// Generate produces one final image and steps step images for the prompt.
// A zero or negative step count degenerates to a single-step request. The
// provider is bypassed entirely on a cache hit; on a miss the submit/poll
// protocol runs once for the final image and once per step, and any single
// failure aborts the whole request with nothing cached.
func (s *ImageService) Generate(ctx context.Context, prompt, style string, steps int) (GenerationResult, error) {
	if s == nil {
		return GenerationResult{}, errors.New("image service: service not initialised")
	}
	if s.selectErr != nil {
		return GenerationResult{}, s.selectErr
	}
	ctx = ensuredContext(ctx)

	if steps <= 0 {
		steps = 1
	}
	if steps > MaxSteps {
		steps = MaxSteps
	}
	if style == "" {
		style = image.DefaultStyle
	}

	key := cache.DeriveKey(cache.NamespaceImage, map[string]any{
		"prompt": prompt,
		"style":  style,
		"steps":  steps,
	})

	if result, ok := s.lookupCache(ctx, key); ok {
		result.Provider = s.generator.Name()
		return result, nil
	}

	started := time.Now()

	finalURL, err := s.generateOne(ctx, image.BuildPrompt(prompt, style))
	if err != nil {
		return GenerationResult{}, err
	}

	stepURLs := make([]string, 0, steps)
	for step := 1; step <= steps; step++ {
		url, err := s.generateOne(ctx, image.BuildStepPrompt(prompt, style, step, steps))
		if err != nil {
			// Partial results are discarded, never cached or persisted.
			return GenerationResult{}, err
		}
		stepURLs = append(stepURLs, url)
	}

	metrics.GenerationDuration.Observe(time.Since(started).Seconds())

	payload, err := json.Marshal(cachedGeneration{FinalImageURL: finalURL, StepImages: stepURLs})
	if err == nil {
		if err := s.store.Set(ctx, key, string(payload), s.cacheTTL); err != nil {
			s.log.Warn("image cache populate failed", zap.Error(err))
		}
	}

	return GenerationResult{
		FinalImageURL: finalURL,
		StepImageURLs: stepURLs,
		Provider:      s.generator.Name(),
		FromCache:     false,
	}, nil
}

func (s *ImageService) lookupCache(ctx context.Context, key string) (GenerationResult, bool) {
	content, found, err := s.store.Get(ctx, key)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(cache.NamespaceImage, "error").Inc()
		s.log.Warn("image cache lookup failed", zap.Error(err))
		return GenerationResult{}, false
	}
	if !found {
		metrics.CacheLookups.WithLabelValues(cache.NamespaceImage, "miss").Inc()
		return GenerationResult{}, false
	}

	var cached cachedGeneration
	if err := json.Unmarshal([]byte(content), &cached); err != nil {
		// Undecodable entries fall through to a live generation.
		metrics.CacheLookups.WithLabelValues(cache.NamespaceImage, "error").Inc()
		s.log.Warn("image cache entry undecodable", zap.String("key", key), zap.Error(err))
		return GenerationResult{}, false
	}

	metrics.CacheLookups.WithLabelValues(cache.NamespaceImage, "hit").Inc()
	return GenerationResult{
		FinalImageURL: cached.FinalImageURL,
		StepImageURLs: cached.StepImages,
		FromCache:     true,
	}, true
}

// generateOne runs the full submit/poll protocol for a single image: submit
// the rendered prompt, then poll on a fixed interval until a terminal state
// or until the wall-clock budget elapses.
func (s *ImageService) generateOne(ctx context.Context, prompt string) (string, error) {
	taskID, err := s.generator.Submit(ctx, prompt)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("image", s.generator.Name(), "failure").Inc()
		return "", err
	}

	deadline := time.Now().Add(s.pollBudget)
	for {
		result, err := s.generator.Poll(ctx, taskID)
		if err != nil {
			metrics.ProviderCalls.WithLabelValues("image", s.generator.Name(), "failure").Inc()
			return "", err
		}

		switch result.Status {
		case image.StatusSucceeded:
			if result.ImageURL == "" {
				metrics.ProviderCalls.WithLabelValues("image", s.generator.Name(), "failure").Inc()
				return "", apperrors.NewProviderFailure(s.generator.Name(),
					fmt.Errorf("task %s succeeded without a result url", taskID))
			}
			metrics.ProviderCalls.WithLabelValues("image", s.generator.Name(), "success").Inc()
			return result.ImageURL, nil
		case image.StatusFailed:
			metrics.ProviderCalls.WithLabelValues("image", s.generator.Name(), "failure").Inc()
			return "", apperrors.NewProviderFailure(s.generator.Name(),
				fmt.Errorf("task %s failed: %s", taskID, result.Message))
		}

		if time.Now().After(deadline) {
			metrics.ProviderCalls.WithLabelValues("image", s.generator.Name(), "timeout").Inc()
			return "", apperrors.ErrGenerationTimeout.WithInternal(fmt.Errorf("task %s still %s after %s", taskID, result.Status, s.pollBudget))
		}

		select {
		case <-ctx.Done():
			return "", apperrors.ErrGenerationTimeout.WithInternal(ctx.Err())
		case <-time.After(s.pollInterval):
		}
	}
}
