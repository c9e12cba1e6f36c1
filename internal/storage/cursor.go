package storage

import (
	"encoding/base64"
	"fmt"
)

// encodeCursor wraps a store page token as an opaque cursor. Callers must
// never parse the result; it only round-trips through decodeCursor.
func encodeCursor(pageToken string) string {
	if pageToken == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(pageToken))
}

// decodeCursor recovers the store page token from an opaque cursor.
func decodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	return string(raw), nil
}
