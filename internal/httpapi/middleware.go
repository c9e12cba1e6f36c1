package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/auth"
	"github.com/parlorgames/parlor/internal/telemetry"
)

var tracer = telemetry.Tracer("parlor/http")

// TokenVerifier validates a bearer token and returns the principal. The
// JWKS-backed auth.Verifier satisfies it; tests substitute stubs.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.User, error)
}

// statusOf derives the HTTP status a dispatch will produce, before the
// problem mapping runs.
func statusOf(resp *Response, err error) int {
	if err != nil {
		return apperr.KindOf(err).Status()
	}
	if resp == nil {
		return http.StatusInternalServerError
	}
	return resp.Status
}

// Trace creates an OTEL span per request and records request count and
// duration metrics.
func Trace() Middleware {
	meter := telemetry.Meter("parlor/http")
	requests, _ := meter.Int64Counter("http.server.request_count")
	duration, _ := meter.Float64Histogram("http.server.duration", otelmetric.WithUnit("ms"))

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			ctx, span := tracer.Start(ctx, req.Method+" "+req.Path,
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.url", req.Path),
					attribute.String("http.request_id", req.RequestID),
				),
			)
			defer span.End()

			start := time.Now()
			resp, err := next(ctx, req)
			status := statusOf(resp, err)

			span.SetAttributes(attribute.Int("http.status_code", status))
			attrs := []attribute.KeyValue{
				attribute.String("http.method", req.Method),
				attribute.String("http.route", req.Path),
				attribute.String("http.status_code", strconv.Itoa(status)),
			}
			if req.User != nil {
				span.SetAttributes(
					attribute.String("parlor.user_id", req.User.ID),
					attribute.String("parlor.role", req.User.Role),
				)
			}
			requests.Add(ctx, 1, otelmetric.WithAttributes(attrs...))
			duration.Record(ctx, float64(time.Since(start).Milliseconds()), otelmetric.WithAttributes(attrs...))
			return resp, err
		}
	}
}

// RequestLog logs each request with structured fields, at a level derived
// from the outcome. Internal error details surface only here; the problem
// body carries a generic message.
func RequestLog(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			status := statusOf(resp, err)

			attrs := []any{
				"method", req.Method,
				"path", req.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", req.RequestID,
			}
			if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
				attrs = append(attrs, "trace_id", sc.TraceID().String())
			}
			if req.User != nil {
				attrs = append(attrs, "user_id", req.User.ID)
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
				attrs = append(attrs, "error", err)
			case status >= 400:
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "http request", attrs...)
			return resp, err
		}
	}
}

// CORS answers preflight requests. OPTIONS short-circuits before the content
// gate and auth run, since browsers send preflights without credentials.
// Simple-response headers are stamped by the adapters via AnnotateCORS so
// problems carry them too.
func CORS(origin string) Middleware {
	const (
		allowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
		allowHeaders = "Content-Type, Authorization, If-Match, If-None-Match"
	)
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if req.Method != http.MethodOptions {
				return next(ctx, req)
			}
			return NoContent().
				WithHeader("Access-Control-Allow-Origin", origin).
				WithHeader("Access-Control-Allow-Methods", allowMethods).
				WithHeader("Access-Control-Allow-Headers", allowHeaders).
				WithHeader("Access-Control-Max-Age", "86400"), nil
		}
	}
}

// AnnotateCORS stamps the cross-origin headers every non-preflight response
// carries, problem responses included. An empty origin disables it.
func AnnotateCORS(resp *Response, origin string) {
	if origin == "" {
		return
	}
	resp.WithHeader("Access-Control-Allow-Origin", origin)
	resp.WithHeader("Access-Control-Expose-Headers", "ETag, Location")
}

// ContentGate rejects mutating requests whose content type is not JSON or
// whose body exceeds the configured cap.
func ContentGate(maxBodyBytes int64) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			switch req.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				ct := req.Header("content-type")
				media := ct
				if m, _, err := mime.ParseMediaType(ct); err == nil {
					media = m
				}
				if !strings.EqualFold(media, ContentTypeJSON) {
					return nil, apperr.UnsupportedMediaType(ct)
				}
				if int64(len(req.Body)) > maxBodyBytes {
					return nil, apperr.PayloadTooLarge(maxBodyBytes)
				}
			}
			return next(ctx, req)
		}
	}
}

// Authenticate extracts and verifies the bearer token, attaching the
// principal to the request. skipPaths are served without authentication.
func Authenticate(verifier TokenVerifier, cookieName string, logger *slog.Logger, skipPaths ...string) Middleware {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if skip[req.Path] {
				return next(ctx, req)
			}
			token, err := bearerToken(req, cookieName)
			if err != nil {
				return nil, err
			}
			user, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.Debug("token rejected", "request_id", req.RequestID, "error", err)
				return nil, apperr.Unauthorized("invalid or expired token")
			}
			req.User = &user
			return next(ctx, req)
		}
	}
}

// bearerToken pulls the token from the Authorization header, falling back
// to the auth cookie when the header is absent.
func bearerToken(req *Request, cookieName string) (string, error) {
	header := req.Header("authorization")
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", apperr.Unauthorized("invalid authorization format")
		}
		return strings.TrimSpace(token), nil
	}
	if cookieName != "" {
		if token := req.Cookie(cookieName); token != "" {
			return token, nil
		}
	}
	return "", apperr.Unauthorized("missing bearer token")
}

// RequireRole guards a route with an allowed-role set.
func RequireRole(roles ...string) Middleware {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if req.User == nil {
				return nil, apperr.Unauthorized("no authenticated principal")
			}
			if !roleSet[req.User.Role] {
				return nil, apperr.Forbidden("insufficient permissions")
			}
			return next(ctx, req)
		}
	}
}

// Recovery converts handler panics into internal errors so one bad request
// cannot take down the process. Innermost in the chain, so the logging and
// tracing middleware observe the resulting 500.
func Recovery(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (resp *Response, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", fmt.Sprint(rec),
						"method", req.Method,
						"path", req.Path,
						"request_id", req.RequestID,
						"stack", string(debug.Stack()),
					)
					resp, err = nil, apperr.Internal(fmt.Sprintf("panic: %v", rec), nil)
				}
			}()
			return next(ctx, req)
		}
	}
}
