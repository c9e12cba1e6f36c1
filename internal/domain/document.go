package domain

import (
	"encoding/json"

	"github.com/parlorgames/parlor/internal/apperr"
)

// Metadata describes the stored object backing an entity. It is produced by
// the store and never set by callers; ETag is the opaque version token,
// unquoted. A zero Metadata means the entity has not been persisted yet.
type Metadata struct {
	ETag         string `json:"etag"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

// Document pairs an identifier with an arbitrary JSON value. The stored body
// is exactly Data; the id lives only in the object key.
type Document struct {
	ID   string
	Data json.RawMessage
	Meta Metadata
}

// NewDocument validates id and data and builds a document with zero
// metadata.
func NewDocument(id string, data json.RawMessage) (Document, error) {
	if err := ValidateID("id", id); err != nil {
		return Document{}, err
	}
	if len(data) == 0 {
		return Document{}, apperr.Validation("data", "data must be present")
	}
	if !json.Valid(data) {
		return Document{}, apperr.Validation("data", "data must be valid JSON")
	}
	return Document{ID: id, Data: data}, nil
}

// WithData returns a copy of the document carrying new data and the same
// metadata.
func (d Document) WithData(data json.RawMessage) (Document, error) {
	next, err := NewDocument(d.ID, data)
	if err != nil {
		return Document{}, err
	}
	next.Meta = d.Meta
	return next, nil
}
