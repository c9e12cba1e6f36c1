// Package parlor is the public API for embedding the parlor JSON store server.
//
// The two entrypoints under cmd/ are thin wrappers around this package:
// cmd/parlor runs a local net/http server, cmd/parlor-lambda hands the
// API Gateway handler to the Lambda runtime. Embedders construct an App
// the same way:
//
//	app, err := parlor.New(
//	    parlor.WithVersion(version),
//	    parlor.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: parlor (root) imports
// internal/*, but internal/* never imports parlor (root).
package parlor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"github.com/parlorgames/parlor/internal/auth"
	"github.com/parlorgames/parlor/internal/config"
	"github.com/parlorgames/parlor/internal/gateway"
	"github.com/parlorgames/parlor/internal/httpapi"
	"github.com/parlorgames/parlor/internal/service"
	"github.com/parlorgames/parlor/internal/storage"
	"github.com/parlorgames/parlor/internal/telemetry"
)

// App is the parlor server lifecycle. Construct with New(), then serve with
// Run() (local net/http) or LambdaHandler() (API Gateway proxy).
// App has no public fields; use New() options to configure it.
type App struct {
	cfg          config.Config
	router       *httpapi.Router
	store        storage.ObjectStore
	closeStore   func() error
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New initialises the parlor server. It loads configuration, opens the
// selected object store, and wires repositories, services and routes into
// a ready-to-serve App. It does NOT start any goroutines or accept
// requests; call Run() or hand LambdaHandler() to the Lambda runtime.
func New(opts ...Option) (*App, error) {
	// Apply options.
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("parlor starting", "version", version, "store", cfg.Store)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Open the object store. An external override takes priority over the
	// PARLOR_STORE selection.
	store := o.store
	closeStore := func() error { return nil }
	if store == nil {
		switch cfg.Store {
		case config.StoreS3:
			awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
			if err != nil {
				_ = otelShutdown(context.Background())
				return nil, fmt.Errorf("aws config: %w", err)
			}
			store = storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Bucket)
		case config.StoreSQLite:
			sq, err := storage.NewSQLiteStore(cfg.SQLitePath)
			if err != nil {
				_ = otelShutdown(context.Background())
				return nil, fmt.Errorf("storage: %w", err)
			}
			store = sq
			closeStore = sq.Close
		default:
			store = storage.NewMemoryStore()
		}
	}

	// Token verifier. An external override takes priority over JWKS.
	var verifier httpapi.TokenVerifier
	if o.verifier != nil {
		verifier = verifierAdapter{o.verifier}
	} else {
		verifier = auth.NewVerifier(cfg.UserPoolIssuer, cfg.ClientID, cfg.JWKSEndpoint(), cfg.JWKSCacheTTL)
	}

	// Wire repositories, services and the route table. All three aggregate
	// repositories share one base prefix; each appends its own sub-prefix.
	documents := service.NewDocumentService(storage.NewDocumentRepository(store, cfg.Prefix), cfg.RequireIfMatch)
	users := service.NewUserService(storage.NewUserRepository(store, cfg.Prefix), cfg.RequireIfMatch)
	games := service.NewGameService(storage.NewGameRepository(store, cfg.Prefix), cfg.RequireIfMatch)

	router := httpapi.NewAPIRouter(httpapi.RouterConfig{
		Documents:    documents,
		Users:        users,
		Games:        games,
		Verifier:     verifier,
		Logger:       logger,
		CORSOrigin:   cfg.CORSOrigin,
		MaxBodyBytes: cfg.MaxBodyBytes,
		AuthCookie:   cfg.AuthCookie,
		Version:      version,
		StoreName:    cfg.Store,
	})

	return &App{
		cfg:          cfg,
		router:       router,
		store:        store,
		closeStore:   closeStore,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// verifierAdapter bridges the public TokenVerifier to the internal auth type.
type verifierAdapter struct{ v TokenVerifier }

func (a verifierAdapter) Verify(ctx context.Context, token string) (auth.User, error) {
	u, err := a.v.Verify(ctx, token)
	if err != nil {
		return auth.User{}, err
	}
	return auth.User{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}

// Router returns the underlying route table. Embedders can dispatch
// requests against it directly, bypassing both transport edges.
func (a *App) Router() *httpapi.Router { return a.router }

// Handler returns the net/http handler serving the API. cmd/parlor mounts
// it on a local server; embedders can mount it under their own mux.
func (a *App) Handler() http.Handler {
	return httpapi.NewBridge(a.router, a.cfg.CORSOrigin, a.cfg.MaxBodyBytes, a.logger)
}

// LambdaHandler returns the API Gateway proxy handler for lambda.Start.
func (a *App) LambdaHandler() func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return gateway.New(a.router, a.cfg.CORSOrigin, a.logger).Handle
}

// Run starts the local HTTP server and blocks until ctx is cancelled or a
// fatal server error occurs. On return, Close is called automatically;
// callers should not call Close separately.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(a.cfg.Port),
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Block until signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = a.Close(context.Background())
		return err
	}

	a.logger.Info("parlor shutting down")
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	return a.Close(context.Background())
}

// Close releases the object store and flushes buffered telemetry.
// Run calls Close on return; only embedders using Handler or LambdaHandler
// directly need to call it themselves.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := a.otelShutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	a.logger.Info("parlor stopped")
	return errors.Join(errs...)
}
