package storage

import "errors"

// Sentinel errors returned by ObjectStore implementations. The repository
// layer maps them to application errors; nothing above it sees them.
var (
	// ErrNotFound reports that no object exists at the key.
	ErrNotFound = errors.New("storage: object not found")

	// ErrPreconditionFailed reports that a conditional write lost: the
	// object changed under an If-Match, or already exists under
	// If-None-Match "*".
	ErrPreconditionFailed = errors.New("storage: precondition failed")

	// ErrBadCursor reports an opaque page cursor that does not decode.
	ErrBadCursor = errors.New("storage: malformed cursor")
)
