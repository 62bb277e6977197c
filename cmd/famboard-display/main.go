package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/agent"
	"github.com/famboard/famboard-api/internal/board"
	"github.com/famboard/famboard-api/pkg/config"
	"github.com/famboard/famboard-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Display.Token == "" {
		logr.Fatal("display token is required")
	}

	client := agent.NewClient(cfg.Display.APIBaseURL, cfg.APIPrefix, cfg.Display.Token, 0)
	display, err := agent.New(client, board.SystemClock(), logr, agent.Config{
		PollInterval: cfg.Display.PollInterval,
		PlayerCmd:    cfg.Display.PlayerCmd,
	})
	if err != nil {
		logr.Fatal("failed to init display agent", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logr.Info("display agent starting",
		zap.String("api", cfg.Display.APIBaseURL),
		zap.Duration("poll_interval", cfg.Display.PollInterval))

	if err := display.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Fatal("display agent failed", zap.Error(err))
	}
	logr.Info("display agent stopped")
}
