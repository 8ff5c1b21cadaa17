package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/minzhou/babydraw/internal/cache"
	"github.com/minzhou/babydraw/internal/providers/speech"
	"github.com/minzhou/babydraw/pkg/logger"
	"github.com/minzhou/babydraw/pkg/metrics"
)

// RecognitionResult is the outcome of one speech recognition request.
type RecognitionResult struct {
	Text      string `json:"text"`
	Provider  string `json:"provider"`
	FromCache bool   `json:"from_cache"`
}

// SpeechService orchestrates speech recognition: fingerprint, cache lookup,
// provider invocation and cache population. The active provider is resolved
// once at construction and never changes for the instance's lifetime.
type SpeechService struct {
	store      cache.Store
	recognizer speech.Recognizer
	selectErr  error
	cacheTTL   time.Duration
	log        *zap.Logger
}

// SpeechServiceOption customises the SpeechService.
type SpeechServiceOption func(*SpeechService)

// WithSpeechCacheTTL overrides the TTL applied to cached recognition results.
func WithSpeechCacheTTL(ttl time.Duration) SpeechServiceOption {
	return func(s *SpeechService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithRecognizer injects a pre-built recogniser, bypassing provider selection.
// Primarily for testing.
func WithRecognizer(recognizer speech.Recognizer) SpeechServiceOption {
	return func(s *SpeechService) {
		if recognizer != nil {
			s.recognizer = recognizer
			s.selectErr = nil
		}
	}
}

// NewSpeechService resolves the active provider from cfg and wires the cache
// store. A missing provider configuration is not fatal here: the error is
// surfaced on each Recognize call so the rest of the API keeps working.
func NewSpeechService(store cache.Store, cfg speech.Config, opts ...SpeechServiceOption) (*SpeechService, error) {
	if store == nil {
		return nil, errors.New("speech service: cache store is required")
	}

	svc := &SpeechService{
		store:    store,
		cacheTTL: cache.DefaultTTL,
		log:      logger.WithModule("speech"),
	}
	svc.recognizer, svc.selectErr = speech.Select(cfg)

	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Provider names the selected provider, or "none" when unconfigured.
func (s *SpeechService) Provider() string {
	if s == nil || s.recognizer == nil {
		return "none"
	}
	return s.recognizer.Name()
}

// Recognize converts raw audio bytes into text, consulting the cache before
// the provider and populating it afterward. Cache failures degrade to a live
// provider call; provider errors propagate untouched.
func (s *SpeechService) Recognize(ctx context.Context, audio []byte) (RecognitionResult, error) {
	if s == nil {
		return RecognitionResult{}, errors.New("speech service: service not initialised")
	}
	if s.selectErr != nil {
		return RecognitionResult{}, s.selectErr
	}
	ctx = ensuredContext(ctx)

	key := cache.DeriveKey(cache.NamespaceSpeech, audio)

	cached, found, err := s.store.Get(ctx, key)
	switch {
	case err != nil:
		// Cache is best-effort; a storage fault must not block recognition.
		metrics.CacheLookups.WithLabelValues(cache.NamespaceSpeech, "error").Inc()
		s.log.Warn("speech cache lookup failed", zap.Error(err))
	case found:
		metrics.CacheLookups.WithLabelValues(cache.NamespaceSpeech, "hit").Inc()
		return RecognitionResult{Text: cached, Provider: s.recognizer.Name(), FromCache: true}, nil
	default:
		metrics.CacheLookups.WithLabelValues(cache.NamespaceSpeech, "miss").Inc()
	}

	text, err := s.recognizer.Recognize(ctx, audio)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("speech", s.recognizer.Name(), "failure").Inc()
		return RecognitionResult{}, err
	}
	metrics.ProviderCalls.WithLabelValues("speech", s.recognizer.Name(), "success").Inc()

	if err := s.store.Set(ctx, key, text, s.cacheTTL); err != nil {
		s.log.Warn("speech cache populate failed", zap.Error(err))
	}

	return RecognitionResult{Text: text, Provider: s.recognizer.Name(), FromCache: false}, nil
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
