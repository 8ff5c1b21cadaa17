package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/minzhou/babydraw/internal/app"
	"github.com/minzhou/babydraw/internal/cache"
	"github.com/minzhou/babydraw/internal/middleware"
	"github.com/minzhou/babydraw/internal/services"
)

// Services bundles the constructed domain services consumed by the router.
type Services struct {
	Store    cache.Store
	Speech   *services.SpeechService
	Images   *services.ImageService
	Drawings *services.DrawingService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs.Store == nil {
		return nil, fmt.Errorf("cache store must be provided")
	}
	if svcs.Speech == nil || svcs.Images == nil || svcs.Drawings == nil {
		return nil, fmt.Errorf("domain services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSWithOrigins(cfg.Server.CORSOrigins))
	r.Use(middleware.RateLimitWithStore(
		middleware.NewDatabaseRateStore(svcs.Store),
		cfg.RateLimit.MaxRequests,
		cfg.RateLimit.Window,
	))

	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r)

	api := r.Group("/api")

	if err := registerCacheRoutes(api, svcs.Store); err != nil {
		return nil, err
	}
	if err := registerSpeechRoutes(api, svcs.Speech, cfg.Uploads.MaxAudioBytes); err != nil {
		return nil, err
	}
	if err := registerImageRoutes(api, svcs.Images); err != nil {
		return nil, err
	}
	if err := registerDrawingRoutes(api, svcs.Drawings, svcs.Store, cfg.Uploads.MaxAudioBytes); err != nil {
		return nil, err
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}
