package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/minzhou/babydraw/internal/api"
	"github.com/minzhou/babydraw/internal/app"
	"github.com/minzhou/babydraw/internal/app/maintenance"
	"github.com/minzhou/babydraw/internal/cache"
	"github.com/minzhou/babydraw/internal/database"
	"github.com/minzhou/babydraw/internal/services"
	"github.com/minzhou/babydraw/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("babydraw-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	store := cache.NewDatabaseStore(db, cache.WithDefaultTTL(cfg.Cache.DefaultTTL))

	speechSvc, err := services.NewSpeechService(store, cfg.SpeechConfig(),
		services.WithSpeechCacheTTL(cfg.Cache.DefaultTTL),
	)
	if err != nil {
		return fmt.Errorf("initialise speech service: %w", err)
	}

	imageTTL := cfg.Cache.DefaultTTL * time.Duration(cfg.Cache.ImageTTLMultiplier)
	imageSvc, err := services.NewImageService(store, cfg.ImageConfig(),
		services.WithImageCacheTTL(imageTTL),
		services.WithPollInterval(cfg.Providers.Tongyi.PollInterval),
		services.WithPollBudget(cfg.Providers.Tongyi.PollTimeout),
	)
	if err != nil {
		return fmt.Errorf("initialise image service: %w", err)
	}

	drawingSvc, err := services.NewDrawingService(db, speechSvc, imageSvc)
	if err != nil {
		return fmt.Errorf("initialise drawing service: %w", err)
	}

	log.Info("providers selected",
		zap.String("speech", speechSvc.Provider()),
		zap.String("image", imageSvc.Provider()),
	)

	sweeper, err := maintenance.NewSweeper(store, maintenance.WithSchedule(cfg.Cache.SweepSchedule))
	if err != nil {
		return fmt.Errorf("initialise maintenance jobs: %w", err)
	}
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := sweeper.Stop()
		if err := sweeper.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown sweep failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(db, cfg, api.Services{
		Store:    store,
		Speech:   speechSvc,
		Images:   imageSvc,
		Drawings: drawingSvc,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		return nil, fmt.Errorf("config path %q: %w", path, err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable at shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
