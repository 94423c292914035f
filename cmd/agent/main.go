package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohitagr18/mcp-home-automation/config"
	"github.com/mohitagr18/mcp-home-automation/internal/agent"
	"github.com/mohitagr18/mcp-home-automation/internal/infra/groq"
	"github.com/mohitagr18/mcp-home-automation/internal/infra/mcpclient"
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

	if err := cfg.ValidateAgent(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("interrupted")
		cancel()
	}()

	tools, err := mcpclient.Connect(ctx, cfg.MCP.URL, logger)
	if err != nil {
		logger.Error("connecting to gateway", "url", cfg.MCP.URL, "error", err)
		os.Exit(1)
	}
	defer tools.Close()

	model := groq.NewClientWithURL(cfg.Groq.APIKey, cfg.Groq.Model, cfg.Groq.BaseURL)
	driver := agent.NewDriver(model, tools, os.Stdout, logger)

	logger.Info("starting client workflow", "gateway", cfg.MCP.URL, "model", cfg.Groq.Model)

	if err := driver.RunScript(ctx, cfg.Kasa.Alias); err != nil {
		logger.Error("client workflow failed", "error", err)
		os.Exit(1)
	}

	logger.Info("client workflow finished")
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
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
