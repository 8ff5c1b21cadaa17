package models

import (
	"time"
)

// CacheEntry represents a cached provider result stored in the database.
// Content is UTF-8 text; structured values are JSON-encoded before storage.
// The entry is logically absent once ExpiresAt has passed, even while the row
// still exists physically.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:255" json:"key"`
	Content   string    `gorm:"type:text" json:"content"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the entry is logically absent at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}
