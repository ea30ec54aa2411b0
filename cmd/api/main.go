// Package main is the entry point for the recipe API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/recipe-api/internal/config"
	"github.com/pkordes/recipe-api/internal/handler"
	"github.com/pkordes/recipe-api/internal/middleware"
	"github.com/pkordes/recipe-api/internal/repo"
	"github.com/pkordes/recipe-api/internal/service"
	"github.com/pkordes/recipe-api/internal/storage"
	"github.com/pkordes/recipe-api/migrations"
	"github.com/pkordes/recipe-api/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// --- Database ---------------------------------------------------------
	pool, err := repo.Connect(ctx, cfg.DatabaseURL, cfg.DBWaitTimeout, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connection established")

	// goose speaks database/sql; borrow a *sql.DB view of the same pool.
	sqlDB := stdlib.OpenDBFromPool(pool)
	applied, err := migrations.Up(ctx, sqlDB)
	_ = sqlDB.Close()
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "count", applied)

	// --- Storage ----------------------------------------------------------
	images, media, err := newImageStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("image storage ready", "backend", cfg.StorageBackend)

	// --- Services ---------------------------------------------------------
	users := repo.NewUserRepo(pool)
	tokens := repo.NewTokenRepo(pool)
	tags := repo.NewTagRepo(pool)
	ingredients := repo.NewIngredientRepo(pool)
	recipes := repo.NewRecipeRepo(pool)

	api := handler.NewRouter(handler.Deps{
		Users:          service.NewUserService(users, tokens),
		Tags:           service.NewTagService(tags),
		Ingredients:    service.NewIngredientService(ingredients),
		Recipes:        service.NewRecipeService(recipes, tags, ingredients, images, logger),
		ImageURL:       images.URL,
		Media:          media,
		OpenAPI:        spec.OpenAPI,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Mount("/", api)

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout is generous enough for an image upload at MaxUploadBytes.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newImageStore returns the configured backend. The local backend also
// returns the directory to serve under /media/; S3 objects are fetched from
// the bucket directly, so media is nil there.
func newImageStore(ctx context.Context, cfg config.Config) (storage.Backend, http.FileSystem, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		s3, err := storage.NewS3(ctx, storage.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	default:
		local, err := storage.NewLocal(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			return nil, nil, err
		}
		return local, http.Dir(cfg.MediaRoot), nil
	}
}
