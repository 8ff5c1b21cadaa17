package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/minzhou/babydraw/internal/models"
)

// DefaultTTL is applied when a Set call does not specify a positive TTL and no
// override was configured.
const DefaultTTL = time.Hour

// DatabaseStore implements the cache Store interface on the primary SQL database.
type DatabaseStore struct {
	db         *gorm.DB
	defaultTTL time.Duration
	now        func() time.Time
}

// Option customises the DatabaseStore.
type Option func(*DatabaseStore)

// WithDefaultTTL overrides the TTL applied when Set receives a non-positive ttl.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *DatabaseStore) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithNow overrides the clock used for expiry comparisons, primarily for testing.
func WithNow(now func() time.Time) Option {
	return func(s *DatabaseStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB, opts ...Option) *DatabaseStore {
	if db == nil {
		return nil
	}

	store := &DatabaseStore{
		db:         db,
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Get retrieves the content for a key. Entries whose expiry has passed behave
// as absent regardless of whether the periodic sweep has purged them yet.
func (s *DatabaseStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, errors.New("cache: database store not initialised")
	}
	ctx = ensuredContext(ctx)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if entry.Expired(s.now()) {
		return "", false, nil
	}

	return entry.Content, true, nil
}

// Set upserts the content for a key. A non-positive ttl applies the configured
// default. Overwrites refresh content, expiry and created_at in one statement,
// so a failed write leaves no partial state for the key.
func (s *DatabaseStore) Set(ctx context.Context, key, content string, ttl time.Duration) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	ctx = ensuredContext(ctx)

	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.now()
	entry := models.CacheEntry{
		Key:       key,
		Content:   content,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "expires_at", "created_at"}),
		}).Create(&entry).Error
}

// Delete removes a key regardless of expiry and reports whether a row existed.
func (s *DatabaseStore) Delete(ctx context.Context, key string) (bool, error) {
	if s == nil {
		return false, errors.New("cache: database store not initialised")
	}
	ctx = ensuredContext(ctx)

	result := s.db.WithContext(ctx).Delete(&models.CacheEntry{}, "key = ?", key)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SweepExpired removes every entry whose expiry has passed and returns the
// number of rows removed. Safe to run concurrently with Get/Set on other keys.
func (s *DatabaseStore) SweepExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: database store not initialised")
	}
	ctx = ensuredContext(ctx)

	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.CacheEntry{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Stats reports entry counts computed against the current time.
func (s *DatabaseStore) Stats(ctx context.Context) (Stats, error) {
	if s == nil {
		return Stats{}, errors.New("cache: database store not initialised")
	}
	ctx = ensuredContext(ctx)

	var stats Stats
	if err := s.db.WithContext(ctx).Model(&models.CacheEntry{}).Count(&stats.Total).Error; err != nil {
		return Stats{}, err
	}
	if err := s.db.WithContext(ctx).Model(&models.CacheEntry{}).
		Where("expires_at <= ?", s.now()).Count(&stats.Expired).Error; err != nil {
		return Stats{}, err
	}

	stats.Active = stats.Total - stats.Expired
	return stats, nil
}

// IncrementWithTTL atomically increments a counter for the supplied key,
// resetting it when the previous window has elapsed. Used by the rate-limit
// middleware.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errors.New("cache: database store not initialised")
	}
	ctx = ensuredContext(ctx)
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	expiry := now.Add(window)

	var count int64
	increment := func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			count = 1
			entry = models.CacheEntry{
				Key:       key,
				Content:   "1",
				ExpiresAt: expiry,
				CreatedAt: now,
			}
			return tx.Create(&entry).Error
		}
		if err != nil {
			return err
		}

		if entry.Expired(now) {
			count = 1
		} else {
			current, _ := strconv.ParseInt(entry.Content, 10, 64)
			count = current + 1
		}
		entry.Content = strconv.FormatInt(count, 10)
		entry.ExpiresAt = expiry

		return tx.Save(&entry).Error
	}

	err := s.db.WithContext(ctx).Transaction(increment)
	if err != nil && isUniqueConstraintError(err) {
		// Two callers raced to create the counter row; the retry observes the
		// winner's row and increments it.
		err = s.db.WithContext(ctx).Transaction(increment)
	}
	if err != nil {
		return 0, 0, err
	}

	return count, expiry.Sub(now), nil
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
