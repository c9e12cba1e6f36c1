package httpapi

import (
	"context"
	"strings"

	"github.com/parlorgames/parlor/internal/apperr"
)

// Handler processes one request. Returning an error delegates the response
// to the problem mapping; a handler never writes problems itself.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Middleware wraps a handler. Errors returned by inner handlers flow
// outward through the chain, so outer middleware observe the final outcome.
type Middleware func(next Handler) Handler

type segment struct {
	literal string
	param   string
}

type route struct {
	method   string
	segments []segment
	statics  int
	handler  Handler
}

func (r *route) match(segs []string) (map[string]string, bool) {
	if len(segs) != len(r.segments) {
		return nil, false
	}
	var params map[string]string
	for i, s := range r.segments {
		if s.param != "" {
			if params == nil {
				params = make(map[string]string)
			}
			params[s.param] = segs[i]
			continue
		}
		if s.literal != segs[i] {
			return nil, false
		}
	}
	return params, true
}

// Router matches method and path patterns to handlers and runs the global
// middleware chain around every dispatch, including misses, so that logs,
// traces and CORS behavior cover 404s and 405s too.
type Router struct {
	middleware []Middleware
	routes     []route
}

// NewRouter builds a router. Middleware run in the given order, first
// outermost.
func NewRouter(mw ...Middleware) *Router {
	return &Router{middleware: mw}
}

// Handle registers a handler for method and pattern. Pattern segments
// starting with ':' bind path parameters, e.g. "/apiv2/internal/files/:id".
// Per-route middleware wrap the handler inside the global chain.
func (rt *Router) Handle(method, pattern string, h Handler, mw ...Middleware) {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	segs := splitPath(pattern)
	parsed := make([]segment, len(segs))
	statics := 0
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			parsed[i] = segment{param: s[1:]}
			continue
		}
		parsed[i] = segment{literal: s}
		statics++
	}
	rt.routes = append(rt.routes, route{method: method, segments: parsed, statics: statics, handler: h})
}

// Dispatch routes one request through the middleware chain and converts any
// error into its problem response. It never returns nil.
func (rt *Router) Dispatch(ctx context.Context, req *Request) *Response {
	h := rt.resolve
	for i := len(rt.middleware) - 1; i >= 0; i-- {
		h = rt.middleware[i](h)
	}
	resp, err := h(ctx, req)
	if err != nil {
		return Problem(req, err)
	}
	if resp == nil {
		return Problem(req, apperr.Internal("handler returned no response", nil))
	}
	return resp
}

// resolve is the terminal handler: it finds the best-matching route and
// invokes it. Static segments outrank parameter bindings, so
// /games/:id/finish prefers a literal route over a parameterized one.
func (rt *Router) resolve(ctx context.Context, req *Request) (*Response, error) {
	segs := splitPath(req.Path)
	var (
		best       *route
		bestParams map[string]string
		bestScore  = -1
		pathKnown  bool
	)
	for i := range rt.routes {
		r := &rt.routes[i]
		params, ok := r.match(segs)
		if !ok {
			continue
		}
		pathKnown = true
		if r.method != req.Method {
			continue
		}
		if r.statics > bestScore {
			best, bestParams, bestScore = r, params, r.statics
		}
	}
	if best == nil {
		if pathKnown {
			return nil, apperr.MethodNotAllowed(req.Method, req.Path)
		}
		return nil, apperr.NotFound("resource", req.Path)
	}
	if req.Params == nil {
		req.Params = bestParams
	} else {
		for k, v := range bestParams {
			req.Params[k] = v
		}
	}
	return best.handler(ctx, req)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
