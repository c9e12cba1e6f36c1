// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends selectable via PARLOR_STORE.
const (
	StoreS3     = "s3"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all application configuration. Immutable after Load.
type Config struct {
	// Object store settings.
	Store      string `env:"PARLOR_STORE" envDefault:"s3"`
	Bucket     string `env:"PARLOR_BUCKET"`
	Prefix     string `env:"PARLOR_PREFIX" envDefault:"json/"`
	SQLitePath string `env:"PARLOR_SQLITE_PATH" envDefault:"parlor.db"`

	// HTTP settings.
	CORSOrigin   string `env:"PARLOR_CORS_ORIGIN" envDefault:"*"`
	MaxBodyBytes int64  `env:"PARLOR_MAX_BODY_BYTES" envDefault:"1048576"`

	// Replace/merge precondition policy: when true, mutating an existing
	// entity without If-Match fails with 428.
	RequireIfMatch bool `env:"PARLOR_REQUIRE_IF_MATCH" envDefault:"false"`

	// Token verification settings.
	UserPoolIssuer string        `env:"PARLOR_USER_POOL_ISSUER"`
	ClientID       string        `env:"PARLOR_CLIENT_ID"`
	JWKSURL        string        `env:"PARLOR_JWKS_URL"`
	JWKSCacheTTL   time.Duration `env:"PARLOR_JWKS_CACHE_TTL" envDefault:"10m"`
	AuthCookie     string        `env:"PARLOR_AUTH_COOKIE" envDefault:"parlor_auth"`

	// Local server settings (cmd/parlor only).
	Port         int           `env:"PARLOR_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"PARLOR_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"PARLOR_WRITE_TIMEOUT" envDefault:"30s"`

	// Operational settings.
	LogLevel string `env:"PARLOR_LOG_LEVEL" envDefault:"info"`

	// OTEL settings. Telemetry is disabled when the endpoint is empty.
	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"parlor"`
	OTELInsecure bool   `env:"OTEL_INSECURE" envDefault:"true"`
}

// Load reads configuration from environment variables and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	switch c.Store {
	case StoreS3:
		if c.Bucket == "" {
			return fmt.Errorf("config: PARLOR_BUCKET is required for the s3 store")
		}
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("config: PARLOR_STORE must be one of %s, %s, %s", StoreS3, StoreSQLite, StoreMemory)
	}
	if c.UserPoolIssuer == "" {
		return fmt.Errorf("config: PARLOR_USER_POOL_ISSUER is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("config: PARLOR_CLIENT_ID is required")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: PARLOR_MAX_BODY_BYTES must be positive")
	}
	if c.JWKSCacheTTL <= 0 {
		return fmt.Errorf("config: PARLOR_JWKS_CACHE_TTL must be positive")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PARLOR_PORT must be a valid port")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: PARLOR_LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}

// JWKSEndpoint returns the configured JWKS URL, defaulting to the issuer's
// well-known location.
func (c Config) JWKSEndpoint() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return strings.TrimSuffix(c.UserPoolIssuer, "/") + "/.well-known/jwks.json"
}

// SlogLevel maps the configured log level to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
