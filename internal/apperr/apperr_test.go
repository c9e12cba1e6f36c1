package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/parlor/internal/apperr"
)

func TestKindStatusAndTitle(t *testing.T) {
	cases := []struct {
		kind   apperr.Kind
		status int
		title  string
	}{
		{apperr.KindValidation, http.StatusBadRequest, "ValidationError"},
		{apperr.KindUnauthorized, http.StatusUnauthorized, "UnauthorizedError"},
		{apperr.KindForbidden, http.StatusForbidden, "ForbiddenError"},
		{apperr.KindNotFound, http.StatusNotFound, "NotFoundError"},
		{apperr.KindMethodNotAllowed, http.StatusMethodNotAllowed, "MethodNotAllowedError"},
		{apperr.KindConflict, http.StatusConflict, "ConflictError"},
		{apperr.KindPreconditionFailed, http.StatusPreconditionFailed, "PreconditionFailedError"},
		{apperr.KindPayloadTooLarge, http.StatusRequestEntityTooLarge, "PayloadTooLargeError"},
		{apperr.KindUnsupportedMediaType, http.StatusUnsupportedMediaType, "UnsupportedMediaTypeError"},
		{apperr.KindPreconditionRequired, http.StatusPreconditionRequired, "PreconditionRequiredError"},
		{apperr.KindNotModified, http.StatusNotModified, "NotModified"},
		{apperr.KindInternal, http.StatusInternalServerError, "InternalServerError"},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.status, tc.kind.Status())
			assert.Equal(t, tc.title, tc.kind.Title())
		})
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := apperr.Conflict("user u1 already exists")
	wrapped := fmt.Errorf("service: create user: %w", base)

	assert.Equal(t, apperr.KindConflict, apperr.KindOf(wrapped))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("boom")))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(nil))
}

func TestValidation_CarriesField(t *testing.T) {
	err := apperr.Validation("name", "name must be 2-100 characters")
	require.Error(t, err)

	wrapped := fmt.Errorf("dto: %w", err)
	assert.Equal(t, "name", apperr.FieldOf(wrapped))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(wrapped))
	assert.Equal(t, "", apperr.FieldOf(errors.New("plain")))
}

func TestNotModified_CarriesETag(t *testing.T) {
	err := apperr.NotModified("abc123")
	assert.Equal(t, "abc123", apperr.ETagOf(err))
	assert.Equal(t, apperr.KindNotModified, apperr.KindOf(err))
}

func TestInternal_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperr.Internal("storage: get object", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
