// Package main is the entrypoint for the studio shots API server.
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

	"github.com/kiranshivaraju/studioshots/internal/ai/providers"
	"github.com/kiranshivaraju/studioshots/internal/api"
	"github.com/kiranshivaraju/studioshots/internal/api/handler"
	mw "github.com/kiranshivaraju/studioshots/internal/api/middleware"
	"github.com/kiranshivaraju/studioshots/internal/cache"
	"github.com/kiranshivaraju/studioshots/internal/config"
	"github.com/kiranshivaraju/studioshots/internal/jobs"
	"github.com/kiranshivaraju/studioshots/internal/media"
	"github.com/kiranshivaraju/studioshots/internal/pipeline"
	"github.com/kiranshivaraju/studioshots/internal/storage"
	"github.com/kiranshivaraju/studioshots/internal/throttle"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"vision_provider", cfg.AI.VisionProvider,
		"synthesis_provider", cfg.AI.SynthesisProvider,
		"env", cfg.Server.Env,
	)
	warnMissingKeys(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Redis when configured
	c, err := connectCache(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer c.Close()

	// 3. Build the job manager and router
	app, err := newApp(cfg, c)
	if err != nil {
		return err
	}

	// 4. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := app.manager.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("job shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

type app struct {
	router  http.Handler
	manager *jobs.Manager
}

// newApp wires providers, media tools, the pipeline and the HTTP surface.
func newApp(cfg *config.Config, c cache.Cache) (*app, error) {
	vision, err := providers.NewVision(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("create vision provider: %w", err)
	}
	synth, err := providers.NewSynthesizer(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("create synthesis provider: %w", err)
	}
	slog.Info("AI providers initialized", "vision", vision.Name(), "synthesis", synth.Name())

	ws := storage.NewWorkspace(cfg.Storage.Root)
	if err := os.MkdirAll(ws.Root(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	p := pipeline.New(pipeline.Deps{
		Fetcher:     media.NewYtDlp(cfg.Media.YtDlpPath, nil, cfg.Media.DownloadTimeout),
		Extractor:   media.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath, nil),
		Vision:      vision,
		Synthesizer: synth,
		Workspace:   ws,
	}, pipeline.Config{
		MaxFrames:         cfg.Media.MaxFrames,
		VisionThrottle:    throttleConfig("vision", cfg.Throttle.VisionDelay, cfg.Throttle),
		SynthesisThrottle: throttleConfig("synthesis", cfg.Throttle.SynthesisDelay, cfg.Throttle),
	})

	manager := jobs.NewManager(p, ws, c)

	var redis handler.Pinger
	if _, ok := c.(cache.Nop); !ok {
		redis = c
	}

	router := api.NewRouter(api.Dependencies{
		RateLimit:   mw.NewRateLimit(c, cfg.Server.RateLimitPerMinute),
		CORSOrigins: cfg.Server.CORSOrigins,

		RootHandler:         handler.NewRootHandler(),
		HealthHandler:       handler.NewHealthHandler(redis),
		ProcessVideoHandler: handler.NewProcessVideoHandler(manager),
		JobStatusHandler:    handler.NewJobStatusHandler(manager),
		ResultsHandler:      handler.NewResultsHandler(manager),
		ImageHandler:        handler.NewImageHandler(ws),
		DeleteJobHandler:    handler.NewDeleteJobHandler(manager),
	})

	return &app{router: router, manager: manager}, nil
}

// connectCache returns a Redis-backed cache, or a no-op one when Redis is
// not configured.
func connectCache(ctx context.Context, cfg config.RedisConfig) (cache.Cache, error) {
	if cfg.URL == "" {
		slog.Info("REDIS_URL not set; status mirror and rate limiting disabled")
		return cache.Nop{}, nil
	}

	rc, err := cache.NewRedisCache(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := rc.Ping(ctx); err != nil {
		rc.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")
	return rc, nil
}

func throttleConfig(name string, delay time.Duration, t config.ThrottleConfig) throttle.Config {
	return throttle.Config{
		Name:       name,
		Delay:      delay,
		MaxRetries: t.MaxAttempts,
		BaseDelay:  t.BaseDelay,
		MaxDelay:   t.MaxDelay,
	}
}

// warnMissingKeys reports provider credentials that are absent for
// providers not currently selected.
func warnMissingKeys(cfg *config.Config) {
	if cfg.AI.HuggingFace.APIToken == "" {
		slog.Warn("HUGGINGFACE_API_TOKEN not set; huggingface enhancement unavailable")
	}
	if cfg.AI.Gemini.APIKey == "" {
		slog.Warn("GEMINI_API_KEY not set; gemini vision and synthesis unavailable")
	}
}
