package parlor

import (
	"log/slog"

	"github.com/parlorgames/parlor/internal/storage"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	port     int
	logger   *slog.Logger
	version  string
	store    storage.ObjectStore
	verifier TokenVerifier
}

// WithPort overrides the TCP port from config (PARLOR_PORT env var).
// Only Run uses the port; the Lambda entrypoint ignores it.
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithStore replaces the object store selected by PARLOR_STORE.
// The end-to-end tests use this to run against the in-memory store.
func WithStore(store storage.ObjectStore) Option {
	return func(o *resolvedOptions) { o.store = store }
}

// WithVerifier replaces the JWKS-backed token verifier.
// The provided implementation must satisfy the TokenVerifier interface.
func WithVerifier(v TokenVerifier) Option {
	return func(o *resolvedOptions) { o.verifier = v }
}
