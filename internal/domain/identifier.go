// Package domain holds the pure aggregates (documents, user profiles,
// games), their persistence wrappers, and the repository contracts the
// application layer depends on. Nothing here performs I/O; mutating
// operations validate and return new values.
package domain

import (
	"regexp"

	"github.com/parlorgames/parlor/internal/apperr"
)

// MaxIDLength bounds every entity identifier.
const MaxIDLength = 128

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// ValidateID checks that id is a well-formed entity identifier. field names
// the input field carrying the id, for the validation error.
func ValidateID(field, id string) error {
	if id == "" {
		return apperr.Validation(field, "identifier must not be empty")
	}
	if !idPattern.MatchString(id) {
		return apperr.Validationf(field, "identifier %q must match [A-Za-z0-9._-]{1,%d}", id, MaxIDLength)
	}
	return nil
}
