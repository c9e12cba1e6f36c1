// Package dto defines the wire shapes of the API: validated request bodies
// and the response views built from domain values. Decoding is strict;
// unknown fields are rejected so client typos fail loudly.
package dto

import (
	"bytes"
	"encoding/json"

	"github.com/parlorgames/parlor/internal/apperr"
)

// Decode unmarshals body into dst, rejecting unknown fields and trailing
// data. Failures are validation errors safe to return to the client.
func Decode(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return apperr.Validation("", "request body must not be empty")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validationf("", "invalid request body: %v", err)
	}
	if dec.More() {
		return apperr.Validation("", "request body must contain a single JSON value")
	}
	return nil
}

// CheckBodyID rejects a body id that contradicts the path id. An empty body
// id is allowed; the path is authoritative.
func CheckBodyID(bodyID, pathID string) error {
	if bodyID != "" && bodyID != pathID {
		return apperr.Validationf("id", "body id %q does not match path id %q", bodyID, pathID)
	}
	return nil
}
