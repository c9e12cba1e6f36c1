package httpapi

import (
	"errors"
	"net/http"

	"github.com/parlorgames/parlor/internal/apperr"
)

// ProblemBody is the RFC 7807 document returned on every failure. Title
// strings are stable and clients match on them.
type ProblemBody struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
	Field    string `json:"field,omitempty"`
}

// Problem maps err to its response. This is the only place errors become
// HTTP: handlers and middleware return errors, Dispatch funnels them here.
//
// KindNotModified is not a problem at all; it renders as a bodyless 304
// citing the current entity tag.
func Problem(req *Request, err error) *Response {
	kind := apperr.KindOf(err)
	if kind == apperr.KindNotModified {
		resp := NewResponse(http.StatusNotModified)
		if etag := apperr.ETagOf(err); etag != "" {
			resp.WithETag(etag)
		}
		return resp
	}

	detail := "an unexpected error occurred"
	if kind != apperr.KindInternal {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			detail = ae.Message
		}
	}

	resp := NewResponse(kind.Status())
	resp.problem = true
	resp.Body = ProblemBody{
		Type:     "about:blank",
		Title:    kind.Title(),
		Status:   kind.Status(),
		Detail:   detail,
		Instance: req.Path,
		Field:    apperr.FieldOf(err),
	}
	return resp
}
