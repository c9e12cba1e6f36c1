// Package httpapi implements the HTTP surface of the API: a
// transport-agnostic request/response model, the router and middleware
// chain, the RFC 7807 problem mapping, and one controller per aggregate
// kind. Both entrypoints, the API Gateway adapter and the local net/http
// bridge, translate into these types, so the whole surface is testable
// without either runtime.
package httpapi

import (
	"strings"

	"github.com/parlorgames/parlor/internal/auth"
)

// Request is the transport-agnostic view of one HTTP request. Adapters fill
// Method, Path, Query, Body and headers; the router fills Params; the auth
// middleware fills User.
type Request struct {
	Method string
	Path   string

	// Query holds single-valued query parameters.
	Query map[string]string

	// Params holds path parameter bindings. The router's own bindings win
	// over any adapter-supplied ones.
	Params map[string]string

	Body []byte

	// RequestID is assigned by the adapter: the gateway request id, an
	// inbound X-Request-Id, or a fresh UUID.
	RequestID string

	// User is the verified principal, nil until the auth middleware ran.
	User *auth.User

	headers map[string]string
}

// SetHeader records a header value. Names are case-insensitive per RFC 9110,
// so they are normalized on write.
func (r *Request) SetHeader(name, value string) {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[strings.ToLower(name)] = value
}

// Header returns the header value for name, or "" when absent.
func (r *Request) Header(name string) string {
	return r.headers[strings.ToLower(name)]
}

// Param returns the path parameter binding for name, or "" when absent.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// QueryValue returns the query parameter for name, or "" when absent.
func (r *Request) QueryValue(name string) string {
	return r.Query[name]
}

// Cookie returns the named cookie's value from the Cookie header, or ""
// when absent.
func (r *Request) Cookie(name string) string {
	header := r.Header("cookie")
	if header == "" {
		return ""
	}
	for _, part := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && k == name {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}

// IfMatch returns the If-Match entity tag, unquoted, or "" when absent.
func (r *Request) IfMatch() string {
	return trimETag(r.Header("if-match"))
}

// IfNoneMatch returns the If-None-Match value, unquoted. The wildcard "*"
// passes through verbatim.
func (r *Request) IfNoneMatch() string {
	return trimETag(r.Header("if-none-match"))
}

// trimETag strips the optional weak prefix and surrounding quotes so etags
// compare in their canonical unquoted form.
func trimETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}
