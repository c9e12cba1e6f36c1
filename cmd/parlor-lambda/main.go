package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	parlor "github.com/parlorgames/parlor"
	"github.com/parlorgames/parlor/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Load .env file if present (non-fatal; deployed functions use real env).
	_ = godotenv.Load()

	level := config.Config{LogLevel: os.Getenv("PARLOR_LOG_LEVEL")}.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	app, err := parlor.New(
		parlor.WithLogger(logger),
		parlor.WithVersion(version),
	)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	lambda.Start(app.LambdaHandler())
}
