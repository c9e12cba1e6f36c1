// Package apperr defines the closed set of application error kinds and the
// single error type that crosses layer boundaries. Domain, storage, and
// service code return *Error values; the HTTP layer maps them to RFC 7807
// problem responses in exactly one place.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the application's failure modes.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindUnauthorized         Kind = "unauthorized"
	KindForbidden            Kind = "forbidden"
	KindNotFound             Kind = "not_found"
	KindMethodNotAllowed     Kind = "method_not_allowed"
	KindConflict             Kind = "conflict"
	KindPreconditionFailed   Kind = "precondition_failed"
	KindPayloadTooLarge      Kind = "payload_too_large"
	KindUnsupportedMediaType Kind = "unsupported_media_type"
	KindPreconditionRequired Kind = "precondition_required"
	KindNotModified          Kind = "not_modified"
	KindInternal             Kind = "internal"
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindConflict:
		return http.StatusConflict
	case KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case KindPreconditionRequired:
		return http.StatusPreconditionRequired
	case KindNotModified:
		return http.StatusNotModified
	default:
		return http.StatusInternalServerError
	}
}

// Title returns the stable problem title for the kind. Clients match on
// these strings, so they never change.
func (k Kind) Title() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindUnauthorized:
		return "UnauthorizedError"
	case KindForbidden:
		return "ForbiddenError"
	case KindNotFound:
		return "NotFoundError"
	case KindMethodNotAllowed:
		return "MethodNotAllowedError"
	case KindConflict:
		return "ConflictError"
	case KindPreconditionFailed:
		return "PreconditionFailedError"
	case KindPayloadTooLarge:
		return "PayloadTooLargeError"
	case KindUnsupportedMediaType:
		return "UnsupportedMediaTypeError"
	case KindPreconditionRequired:
		return "PreconditionRequiredError"
	case KindNotModified:
		return "NotModified"
	default:
		return "InternalServerError"
	}
}

// Error is the application error. Message is safe to return to clients for
// every kind except KindInternal, whose detail is always replaced by a
// generic one at the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string

	// Field names the offending input field for validation errors.
	Field string

	// ETag carries the current entity tag on not-modified results so the
	// 304 response can cite it.
	ETag string

	// Err is the wrapped cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from err, looking through wrapping. Errors that
// carry no kind are internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// FieldOf returns the offending field name, if err carries one.
func FieldOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Field
	}
	return ""
}

// ETagOf returns the entity tag attached to err, if any.
func ETagOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.ETag
	}
	return ""
}

// Validation builds a 400 error. field may be empty when the problem is not
// attributable to a single input field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// Validationf builds a 400 error with a formatted message.
func Validationf(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...), Field: field}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound builds a 404 error for the named resource.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", resource, id)}
}

// MethodNotAllowed builds a 405 error.
func MethodNotAllowed(method, path string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: fmt.Sprintf("method %s not allowed for %s", method, path)}
}

// Conflict builds a 409 error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// PreconditionFailed builds a 412 error.
func PreconditionFailed(message string) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: message}
}

// PayloadTooLarge builds a 413 error citing the configured limit.
func PayloadTooLarge(limit int64) *Error {
	return &Error{Kind: KindPayloadTooLarge, Message: fmt.Sprintf("request body exceeds %d bytes", limit)}
}

// UnsupportedMediaType builds a 415 error.
func UnsupportedMediaType(got string) *Error {
	msg := "content type must be application/json"
	if got != "" {
		msg = fmt.Sprintf("unsupported content type %q, expected application/json", got)
	}
	return &Error{Kind: KindUnsupportedMediaType, Message: msg}
}

// PreconditionRequired builds a 428 error.
func PreconditionRequired(message string) *Error {
	return &Error{Kind: KindPreconditionRequired, Message: message}
}

// NotModified signals that the client's cached representation is current.
// etag is the entity's current tag, unquoted.
func NotModified(etag string) *Error {
	return &Error{Kind: KindNotModified, Message: "not modified", ETag: etag}
}

// Internal wraps an unexpected failure. The message is logged server-side
// and never returned to clients verbatim.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}
