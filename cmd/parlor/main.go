package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	parlor "github.com/parlorgames/parlor"
	"github.com/parlorgames/parlor/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// The logger exists before config is loaded and validated, so read the
	// level straight from the environment.
	level := config.Config{LogLevel: os.Getenv("PARLOR_LOG_LEVEL")}.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := parlor.New(
		parlor.WithLogger(logger),
		parlor.WithVersion(version),
	)
	if err != nil {
		logger.Error("fatal error", "error", err)
		return 1
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("fatal error", "error", err)
		return 1
	}
	return 0
}
