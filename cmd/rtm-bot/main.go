package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/qj0r9j0vc2/rtm-bot/internal/app"
	"github.com/qj0r9j0vc2/rtm-bot/internal/usecase/bot"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	application, err := app.New(configPath)
	if err != nil {
		slog.Error("failed to start", "config", configPath, "error", err)
		os.Exit(1)
	}

	logger := application.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)
	if runErr != nil {
		logger.Error("rtm-bot terminated",
			"fatal", errors.Is(runErr, bot.ErrFatal),
			"error", runErr,
		)
	}

	if err := application.Shutdown(); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
