package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/metno-forecast/norwegianweather/internal/api/http"
	"github.com/metno-forecast/norwegianweather/internal/config"
	"github.com/metno-forecast/norwegianweather/internal/scheduler"
	"github.com/metno-forecast/norwegianweather/internal/store"
	"github.com/metno-forecast/norwegianweather/internal/weather"
	"github.com/metno-forecast/norwegianweather/internal/weather/providers"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("norwegianweather: %v", err)
	}
}

// run wires and serves the application. Deferred cleanup always runs before
// the process exits.
func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	appLog := newLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence for the raw payload and freshness pair.
	blobs, closeBlobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s blob store: %w", cfg.StoreBackend, err)
	}
	defer closeBlobs()

	// Shared HTTP client for outbound forecast calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	base := cfg.Location()
	provider, err := providers.NewMetNoProvider(httpClient, base, providers.MetNoOptions{
		BaseURL:       cfg.BaseURL,
		UserAgent:     cfg.UserAgent,
		Timeout:       cfg.HTTPTimeout,
		RatePerSecond: cfg.RatePerSecond,
	}, appLog)
	if err != nil {
		return fmt.Errorf("create forecast provider: %w", err)
	}
	appLog.Info("forecast provider ready", "url", provider.URL())

	// Core service orchestrating fetch, normalization and persistence.
	service := weather.NewService(provider, store.NewMemoryStore(), blobs, base, appLog)
	if err := service.Load(ctx); err != nil {
		appLog.Warn("could not restore stored forecast", "error", err)
	}

	// Scheduler that periodically runs the update cycle.
	sched := scheduler.New(service, cfg.FetchInterval, appLog)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "norwegianweather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		loc := service.Location()
		return c.JSON(fiber.Map{
			"status":     "ok",
			"service":    "norwegianweather",
			"place":      loc.Name,
			"timeseries": len(loc.TimeSeries),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, httpapi.Options{
		SeriesMax:      cfg.SeriesMax,
		RefreshTimeout: cfg.HTTPTimeout + 5*time.Second,
	})

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLog.Info("http server starting", "port", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		// Wait for termination signal or a failed listener.
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	appLog.Info("server stopped")
	return nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newBlobStore(ctx context.Context, cfg *config.AppConfig) (weather.BlobStore, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemoryBlobStore(), func() {}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		blobs, err := store.NewPostgresBlobStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return blobs, pool.Close, nil
	default:
		blobs, err := store.NewFileBlobStore(cfg.StoreDir)
		if err != nil {
			return nil, nil, err
		}
		return blobs, func() {}, nil
	}
}
