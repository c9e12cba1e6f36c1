package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Bridge adapts the router to net/http for the local server. The end-to-end
// tests run against it too, so both entrypoints share one tested surface.
type Bridge struct {
	router       *Router
	corsOrigin   string
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewBridge builds the net/http adapter around router.
func NewBridge(router *Router, corsOrigin string, maxBodyBytes int64, logger *slog.Logger) *Bridge {
	return &Bridge{
		router:       router,
		corsOrigin:   corsOrigin,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// ServeHTTP translates the request, dispatches it, and writes the response.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     flattenQuery(r),
		RequestID: requestID(r),
	}
	for name, values := range r.Header {
		req.SetHeader(name, strings.Join(values, ", "))
	}

	// One byte past the cap lets the content gate distinguish at-limit from
	// over-limit without buffering an unbounded body.
	body, err := io.ReadAll(io.LimitReader(r.Body, b.maxBodyBytes+1))
	if err != nil {
		b.logger.Error("read request body", "error", err, "request_id", req.RequestID)
		b.write(w, req, Problem(req, err))
		return
	}
	req.Body = body

	b.write(w, req, b.router.Dispatch(r.Context(), req))
}

func (b *Bridge) write(w http.ResponseWriter, req *Request, resp *Response) {
	if req.Method != http.MethodOptions {
		AnnotateCORS(resp, b.corsOrigin)
	}

	body, err := resp.RenderBody()
	if err != nil {
		b.logger.Error("render response body", "error", err, "request_id", req.RequestID)
		resp = NewResponse(http.StatusInternalServerError)
		body = nil
	}

	header := w.Header()
	for name, value := range resp.Headers {
		header.Set(name, value)
	}
	header.Set("X-Request-Id", req.RequestID)
	if body != nil {
		header.Set("Content-Type", resp.ContentType())
	}
	w.WriteHeader(resp.Status)
	if body != nil {
		if _, err := w.Write(body); err != nil {
			b.logger.Error("write response body", "error", err, "request_id", req.RequestID)
		}
	}
}

// flattenQuery keeps the first value of each query parameter, matching the
// single-valued gateway event shape.
func flattenQuery(r *http.Request) map[string]string {
	values := r.URL.Query()
	if len(values) == 0 {
		return nil
	}
	q := make(map[string]string, len(values))
	for name, vals := range values {
		if len(vals) > 0 {
			q[name] = vals[0]
		}
	}
	return q
}

// requestID echoes an inbound X-Request-Id or assigns a fresh one.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.New().String()
}
