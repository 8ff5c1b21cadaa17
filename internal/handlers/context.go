package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minzhou/babydraw/internal/models"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// ownerID resolves the requesting owner from the X-Owner-ID header or the
// owner_id query parameter. Unidentified callers share the anonymous bucket.
func ownerID(c *gin.Context) string {
	if owner := strings.TrimSpace(c.GetHeader("X-Owner-ID")); owner != "" {
		return owner
	}
	if owner := strings.TrimSpace(c.Query("owner_id")); owner != "" {
		return owner
	}
	return models.AnonymousOwner
}
