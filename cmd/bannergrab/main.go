package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/bannergrab/api"
	"github.com/use-agent/bannergrab/api/handler"
	"github.com/use-agent/bannergrab/banner"
	"github.com/use-agent/bannergrab/cache"
	"github.com/use-agent/bannergrab/config"
	"github.com/use-agent/bannergrab/scraper"
	"github.com/use-agent/bannergrab/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("bannergrab starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"outputDir", cfg.Output.Dir,
		"auth", len(cfg.Auth.APIKeys) > 0,
		"rateRPS", cfg.RateLimit.RequestsPerSecond,
	)

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		slog.Error("cannot create output directory", "dir", cfg.Output.Dir, "error", err)
		os.Exit(1)
	}

	// ── 3. Presets and scraper ──────────────────────────────────────
	presets, err := banner.LoadPresets(cfg.Rules.PresetsFile)
	if err != nil {
		slog.Error("failed to load presets", "file", cfg.Rules.PresetsFile, "error", err)
		os.Exit(1)
	}
	sc := scraper.NewScraper(cfg.Scraper)

	// ── 4. Cache and webhooks ───────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Stop()
	notifier := &webhook.Notifier{Secret: cfg.Webhook.Secret}

	// ── 5. Setup router ─────────────────────────────────────────────
	rn := &handler.Runner{Fetcher: sc, Presets: presets, Output: cfg.Output}
	router := api.NewRouter(rn, cfg, cc, notifier, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// A banner run is bounded by the page timeout plus its image downloads.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.PageTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("bannergrab stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
