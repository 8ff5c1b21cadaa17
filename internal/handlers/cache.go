package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/cache"
	appErrors "github.com/minzhou/babydraw/pkg/errors"
	"github.com/minzhou/babydraw/pkg/response"
)

// CacheHandler exposes the cache store for direct inspection and maintenance.
type CacheHandler struct {
	store cache.Store
}

// NewCacheHandler constructs a cache handler.
func NewCacheHandler(store cache.Store) (*CacheHandler, error) {
	if store == nil {
		return nil, appErrors.New("cache.handler", "cache store is required", http.StatusInternalServerError)
	}
	return &CacheHandler{store: store}, nil
}

type setCacheRequest struct {
	Key        string `json:"key" validate:"required,min=1,max=255"`
	Value      string `json:"value" validate:"required"`
	TTLSeconds int    `json:"ttl" validate:"omitempty,min=1"`
}

// Set stores a value under the given key, using the store default TTL when
// none is supplied.
func (h *CacheHandler) Set(c *gin.Context) {
	var req setCacheRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := h.store.Set(requestContext(c), req.Key, req.Value, ttl); err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to store cache entry"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"key": req.Key, "cached": true})
}

// Get returns the cached value for a key, or 404 when absent or expired.
func (h *CacheHandler) Get(c *gin.Context) {
	key := c.Param("key")

	value, found, err := h.store.Get(requestContext(c), key)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to read cache entry"))
		return
	}
	if !found {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"key": key, "value": value})
}

// Delete removes a cache entry, reporting 404 when the key is absent.
func (h *CacheHandler) Delete(c *gin.Context) {
	key := c.Param("key")

	deleted, err := h.store.Delete(requestContext(c), key)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to delete cache entry"))
		return
	}
	if !deleted {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"key": key, "deleted": true})
}

// Stats reports entry counts for monitoring.
func (h *CacheHandler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(requestContext(c))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to compute cache statistics"))
		return
	}

	response.Success(c, http.StatusOK, stats)
}
