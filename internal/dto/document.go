package dto

import (
	"encoding/json"
	"fmt"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/domain"
)

// CreateDocumentRequest is the POST body for a generic document.
type CreateDocumentRequest struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// ToDocument builds the domain document.
func (r CreateDocumentRequest) ToDocument() (domain.Document, error) {
	return domain.NewDocument(r.ID, r.Data)
}

// ReplaceDocumentRequest is the PUT body. ID, when present, must equal the
// path id.
type ReplaceDocumentRequest struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// ToDocument builds the domain document for the path id.
func (r ReplaceDocumentRequest) ToDocument(id string) (domain.Document, error) {
	if err := CheckBodyID(r.ID, id); err != nil {
		return domain.Document{}, err
	}
	return domain.NewDocument(id, r.Data)
}

// MergeDocumentRequest is the PATCH body. Data, when present, is shallowly
// merged into the stored document; both sides must be JSON objects.
type MergeDocumentRequest struct {
	ID   *string         `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Apply merges the request into current. Provided top-level keys overwrite
// the stored ones; absent keys are preserved byte for byte.
func (r MergeDocumentRequest) Apply(current domain.Document) (domain.Document, error) {
	if r.ID != nil {
		if err := CheckBodyID(*r.ID, current.ID); err != nil {
			return domain.Document{}, err
		}
	}
	if len(r.Data) == 0 {
		return current, nil
	}

	// JSON null unmarshals into a nil map without error, so check for it
	// explicitly: merging requires objects on both sides.
	var base map[string]json.RawMessage
	if err := json.Unmarshal(current.Data, &base); err != nil || base == nil {
		return domain.Document{}, apperr.Validation("data", "stored document is not a JSON object and cannot be merged")
	}
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(r.Data, &patch); err != nil || patch == nil {
		return domain.Document{}, apperr.Validation("data", "data must be a JSON object for merge")
	}
	for k, v := range patch {
		base[k] = v
	}

	merged, err := json.Marshal(base)
	if err != nil {
		return domain.Document{}, fmt.Errorf("dto: merge document %q: %w", current.ID, err)
	}
	return current.WithData(merged)
}

// DocumentResponse is the wire shape of a document.
type DocumentResponse struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// NewDocumentResponse builds the response view of d.
func NewDocumentResponse(d domain.Document) DocumentResponse {
	return DocumentResponse{ID: d.ID, Data: d.Data}
}
