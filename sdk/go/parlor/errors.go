// Package parlor provides a Go client for the parlor JSON store API.
package parlor

import (
	"errors"
	"fmt"
)

// Error represents an error from the parlor API. It carries the fields of
// the RFC 7807 problem document the server returned. Title strings are
// stable and safe to match on.
type Error struct {
	StatusCode int
	Type       string
	Title      string
	Detail     string
	Instance   string

	// Field names the offending input field on validation errors.
	Field string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parlor: %s (%d): %s (field %q)", e.Title, e.StatusCode, e.Detail, e.Field)
	}
	return fmt.Sprintf("parlor: %s (%d): %s", e.Title, e.StatusCode, e.Detail)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	return statusOf(err) == 404
}

// IsUnauthorized returns true if the error is a 401.
func IsUnauthorized(err error) bool {
	return statusOf(err) == 401
}

// IsForbidden returns true if the error is a 403.
func IsForbidden(err error) bool {
	return statusOf(err) == 403
}

// IsConflict returns true if the error is a 409. Creating an entity whose id
// is already taken fails this way.
func IsConflict(err error) bool {
	return statusOf(err) == 409
}

// IsPreconditionFailed returns true if the error is a 412: the If-Match tag
// no longer matches the stored entity. Re-read and retry with the new tag.
func IsPreconditionFailed(err error) bool {
	return statusOf(err) == 412
}

// IsPreconditionRequired returns true if the error is a 428: the server is
// configured to demand If-Match on updates and deletes.
func IsPreconditionRequired(err error) bool {
	return statusOf(err) == 428
}

func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
