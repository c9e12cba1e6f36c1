package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Content types written by the API.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeProblem = "application/problem+json"
)

// Response is the transport-agnostic view of one HTTP response. Body is
// serialized to JSON by the adapter; a nil Body produces an empty response.
type Response struct {
	Status  int
	Headers map[string]string
	Body    any

	problem bool
}

// NewResponse builds an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Headers: make(map[string]string)}
}

// OK builds a 200 response carrying body.
func OK(body any) *Response {
	resp := NewResponse(http.StatusOK)
	resp.Body = body
	return resp
}

// Created builds a 201 response carrying body.
func Created(body any) *Response {
	resp := NewResponse(http.StatusCreated)
	resp.Body = body
	return resp
}

// NoContent builds a 204 response.
func NoContent() *Response {
	return NewResponse(http.StatusNoContent)
}

// WithHeader sets a response header and returns the response for chaining.
func (r *Response) WithHeader(name, value string) *Response {
	r.Headers[name] = value
	return r
}

// WithETag sets the ETag header, quoting the tag if it is not already.
func (r *Response) WithETag(etag string) *Response {
	return r.WithHeader("ETag", quoteETag(etag))
}

// WithLocation sets the Location header.
func (r *Response) WithLocation(path string) *Response {
	return r.WithHeader("Location", path)
}

// WithCacheControl sets the Cache-Control header.
func (r *Response) WithCacheControl(directive string) *Response {
	return r.WithHeader("Cache-Control", directive)
}

// Header returns the response header for name, case-insensitively.
func (r *Response) Header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// ContentType returns the media type the rendered body carries.
func (r *Response) ContentType() string {
	if r.problem {
		return ContentTypeProblem
	}
	return ContentTypeJSON
}

// RenderBody serializes the body to JSON. A nil body renders to nil.
func (r *Response) RenderBody() ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return json.Marshal(r.Body)
}

// quoteETag wraps an entity tag in the double quotes the HTTP headers
// require. Already-quoted tags pass through.
func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}
