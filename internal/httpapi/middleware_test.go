package httpapi_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/auth"
	"github.com/parlorgames/parlor/internal/httpapi"
	"github.com/parlorgames/parlor/internal/testutil"
)

// stubVerifier maps literal tokens to principals.
type stubVerifier map[string]auth.User

func (s stubVerifier) Verify(_ context.Context, token string) (auth.User, error) {
	u, ok := s[token]
	if !ok {
		return auth.User{}, errors.New("unknown token")
	}
	return u, nil
}

func passthrough(_ context.Context, _ *httpapi.Request) (*httpapi.Response, error) {
	return httpapi.OK("inner"), nil
}

func TestCORS_AnswersPreflight(t *testing.T) {
	h := httpapi.CORS("https://app.example.test")(func(_ context.Context, _ *httpapi.Request) (*httpapi.Response, error) {
		t.Fatal("preflight must not reach the next handler")
		return nil, nil
	})

	resp, err := h(context.Background(), newReq(http.MethodOptions, "/apiv2/internal/users"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Equal(t, "https://app.example.test", resp.Header("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, strings.ToLower(resp.Header("Access-Control-Allow-Headers")), "if-match")
	assert.Nil(t, resp.Body)
}

func TestCORS_PassesNonPreflight(t *testing.T) {
	h := httpapi.CORS("*")(passthrough)
	resp, err := h(context.Background(), newReq(http.MethodGet, "/x"))
	require.NoError(t, err)
	assert.Equal(t, "inner", resp.Body)
}

func TestContentGate(t *testing.T) {
	gate := httpapi.ContentGate(16)

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantKind    apperr.Kind
	}{
		{"json post passes", http.MethodPost, "application/json", `{}`, ""},
		{"charset parameter ok", http.MethodPut, "application/json; charset=utf-8", `{}`, ""},
		{"missing content type", http.MethodPost, "", `{}`, apperr.KindUnsupportedMediaType},
		{"wrong media type", http.MethodPatch, "text/plain", `{}`, apperr.KindUnsupportedMediaType},
		{"oversized body", http.MethodPost, "application/json", strings.Repeat("x", 17), apperr.KindPayloadTooLarge},
		{"get exempt", http.MethodGet, "", "", ""},
		{"delete exempt", http.MethodDelete, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newReq(tt.method, "/x")
			if tt.contentType != "" {
				req.SetHeader("Content-Type", tt.contentType)
			}
			req.Body = []byte(tt.body)

			_, err := gate(passthrough)(context.Background(), req)
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	verifier := stubVerifier{"good-token": {ID: "u1", Email: "u1@example.test", Role: "admin"}}
	mw := httpapi.Authenticate(verifier, "parlor_auth", testutil.TestLogger(), "/apiv2/health")

	seen := func() (*[]string, httpapi.Handler) {
		var ids []string
		return &ids, func(_ context.Context, req *httpapi.Request) (*httpapi.Response, error) {
			if req.User != nil {
				ids = append(ids, req.User.ID)
			} else {
				ids = append(ids, "<anonymous>")
			}
			return httpapi.NoContent(), nil
		}
	}

	t.Run("bearer header", func(t *testing.T) {
		ids, inner := seen()
		req := newReq(http.MethodGet, "/x")
		req.SetHeader("Authorization", "Bearer good-token")
		_, err := mw(inner)(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, *ids)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		ids, inner := seen()
		req := newReq(http.MethodGet, "/x")
		req.SetHeader("Cookie", "theme=dark; parlor_auth=good-token")
		_, err := mw(inner)(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, *ids)
	})

	t.Run("missing token", func(t *testing.T) {
		_, inner := seen()
		_, err := mw(inner)(context.Background(), newReq(http.MethodGet, "/x"))
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})

	t.Run("malformed header", func(t *testing.T) {
		_, inner := seen()
		req := newReq(http.MethodGet, "/x")
		req.SetHeader("Authorization", "Basic dXNlcjpwYXNz")
		_, err := mw(inner)(context.Background(), req)
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})

	t.Run("rejected token", func(t *testing.T) {
		_, inner := seen()
		req := newReq(http.MethodGet, "/x")
		req.SetHeader("Authorization", "Bearer forged")
		_, err := mw(inner)(context.Background(), req)
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})

	t.Run("skip path", func(t *testing.T) {
		ids, inner := seen()
		_, err := mw(inner)(context.Background(), newReq(http.MethodGet, "/apiv2/health"))
		require.NoError(t, err)
		assert.Equal(t, []string{"<anonymous>"}, *ids)
	})
}

func TestRequireRole(t *testing.T) {
	mw := httpapi.RequireRole(auth.RoleAdmin)

	t.Run("allowed", func(t *testing.T) {
		req := newReq(http.MethodGet, "/x")
		req.User = &auth.User{ID: "u1", Role: auth.RoleAdmin}
		resp, err := mw(passthrough)(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "inner", resp.Body)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := newReq(http.MethodGet, "/x")
		req.User = &auth.User{ID: "u2", Role: auth.RoleUser}
		_, err := mw(passthrough)(context.Background(), req)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("no principal", func(t *testing.T) {
		_, err := mw(passthrough)(context.Background(), newReq(http.MethodGet, "/x"))
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})
}

func TestRecovery_TurnsPanicIntoInternal(t *testing.T) {
	mw := httpapi.Recovery(testutil.TestLogger())
	h := mw(func(_ context.Context, _ *httpapi.Request) (*httpapi.Response, error) {
		panic("kaboom")
	})

	resp, err := h(context.Background(), newReq(http.MethodGet, "/x"))
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestRequest_ConditionalHeaders(t *testing.T) {
	req := newReq(http.MethodGet, "/x")
	req.SetHeader("If-Match", `"abc-1"`)
	req.SetHeader("If-None-Match", `W/"def-2"`)
	assert.Equal(t, "abc-1", req.IfMatch())
	assert.Equal(t, "def-2", req.IfNoneMatch())

	req.SetHeader("If-None-Match", "*")
	assert.Equal(t, "*", req.IfNoneMatch())
}
