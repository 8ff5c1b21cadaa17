package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/minzhou/babydraw/internal/cache"
	"github.com/minzhou/babydraw/pkg/logger"
)

const defaultSweepSpec = "@hourly"

// Sweeper periodically removes expired cache entries so the cache table does
// not grow without bound.
type Sweeper struct {
	store cache.Store
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	schedule string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedule overrides the cron expression for the sweep job.
func WithSchedule(expr string) Option {
	return func(s *Sweeper) {
		if expr != "" {
			s.schedule = expr
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults.
func NewSweeper(store cache.Store, opts ...Option) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("maintenance: cache store is required")
	}

	sweeper := &Sweeper{
		store:    store,
		now:      time.Now,
		schedule: defaultSweepSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper, nil
}

// Start registers the sweep job with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx := context.Background()
		removed, err := s.store.SweepExpired(ctx)
		if err != nil {
			s.log.Warn("cache sweep failed", zap.Error(err))
			return
		}
		if removed > 0 {
			s.log.Info("cache sweep completed",
				zap.Int64("removed", removed),
				zap.Time("swept_at", s.now()),
			)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes the sweep immediately. Primarily used in tests and during
// graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if _, err := s.store.SweepExpired(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
