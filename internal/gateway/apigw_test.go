package gateway_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/parlor/internal/gateway"
	"github.com/parlorgames/parlor/internal/httpapi"
	"github.com/parlorgames/parlor/internal/testutil"
)

func echoRouter() *httpapi.Router {
	r := httpapi.NewRouter()
	r.Handle(http.MethodPost, "/echo/:id", func(_ context.Context, req *httpapi.Request) (*httpapi.Response, error) {
		return httpapi.Created(map[string]string{
			"id":     req.Param("id"),
			"body":   string(req.Body),
			"bearer": req.Header("authorization"),
			"q":      req.QueryValue("q"),
		}).WithETag("tag-1"), nil
	})
	return r
}

func newAdapter() *gateway.Adapter {
	return gateway.New(echoRouter(), "*", testutil.TestLogger())
}

func TestAdapter_TranslatesEvent(t *testing.T) {
	resp, err := newAdapter().Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		Path:                  "/echo/e7",
		Headers:               map[string]string{"Authorization": "Bearer tok", "Content-Type": "application/json"},
		QueryStringParameters: map[string]string{"q": "v"},
		Body:                  `{"n":1}`,
		RequestContext:        events.APIGatewayProxyRequestContext{RequestID: "gw-123"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `"tag-1"`, resp.Headers["ETag"])
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "gw-123", resp.Headers["X-Request-Id"])

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "e7", body["id"])
	assert.Equal(t, `{"n":1}`, body["body"])
	assert.Equal(t, "Bearer tok", body["bearer"])
	assert.Equal(t, "v", body["q"])
}

func TestAdapter_DecodesBase64Body(t *testing.T) {
	resp, err := newAdapter().Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/echo/b64",
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"raw":true}`)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, `{"raw":true}`, body["body"])
}

func TestAdapter_RejectsBadBase64(t *testing.T) {
	resp, err := newAdapter().Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/echo/x",
		Body:            "%%% not base64 %%%",
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Headers["Content-Type"])
}

func TestAdapter_ProblemsCarryCORS(t *testing.T) {
	resp, err := newAdapter().Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/missing",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	var problem struct {
		Title    string `json:"title"`
		Instance string `json:"instance"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &problem))
	assert.Equal(t, "NotFoundError", problem.Title)
	assert.Equal(t, "/missing", problem.Instance)
}

func TestAdapter_KeepsGatewayPathParams(t *testing.T) {
	r := httpapi.NewRouter()
	r.Handle(http.MethodGet, "/users/:id", func(_ context.Context, req *httpapi.Request) (*httpapi.Response, error) {
		return httpapi.OK(map[string]string{"proxy": req.Param("proxy"), "id": req.Param("id")}), nil
	})
	adapter := gateway.New(r, "*", testutil.TestLogger())

	resp, err := adapter.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodGet,
		Path:           "/users/u1",
		PathParameters: map[string]string{"proxy": "users/u1"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "users/u1", body["proxy"])
	assert.Equal(t, "u1", body["id"])
}

func TestAdapter_AssignsRequestID(t *testing.T) {
	resp, err := newAdapter().Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/missing",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Headers["X-Request-Id"])
}
