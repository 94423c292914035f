package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohitagr18/mcp-home-automation/config"
	"github.com/mohitagr18/mcp-home-automation/internal/application"
	"github.com/mohitagr18/mcp-home-automation/internal/infra/kasa"
	"github.com/mohitagr18/mcp-home-automation/internal/infra/mcpserver"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	if err := cfg.ValidateGateway(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(cfg.Kasa.Timeout)
	if err != nil {
		logger.Warn("invalid kasa timeout, using default", "error", err, "value", cfg.Kasa.Timeout)
		timeout = 10 * time.Second
	}

	client := kasa.NewClient(timeout)
	cache := kasa.NewCache(client, cfg.Kasa.Addr, logger)
	gateway := application.NewGateway(cacheResolver{cache}, cfg.Kasa.Alias, logger)
	srv := mcpserver.New(gateway, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("starting kasa smart home gateway",
		"addr", cfg.Server.Addr,
		"device", cfg.Kasa.Addr,
		"alias", cfg.Kasa.Alias,
	)

	if err := srv.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// cacheResolver adapts the kasa cache to the application resolver port.
type cacheResolver struct {
	cache *kasa.Cache
}

func (r cacheResolver) Resolve(ctx context.Context) (application.PlugHandle, error) {
	plug, err := r.cache.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return plug, nil
}

func (r cacheResolver) Invalidate() {
	r.cache.Invalidate()
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
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

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
