// Package gateway adapts API Gateway proxy events to the internal HTTP
// types. It is the Lambda counterpart of the net/http bridge: both feed the
// same router, so handler behavior is identical across entrypoints.
package gateway

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/httpapi"
)

// Adapter turns proxy events into router dispatches.
type Adapter struct {
	router     *httpapi.Router
	corsOrigin string
	logger     *slog.Logger
}

// New builds the adapter around router.
func New(router *httpapi.Router, corsOrigin string, logger *slog.Logger) *Adapter {
	return &Adapter{router: router, corsOrigin: corsOrigin, logger: logger}
}

// Handle processes one proxy event. It is the function handed to the Lambda
// runtime; the returned error is always nil since failures are rendered as
// problem responses.
func (a *Adapter) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := a.toRequest(event)
	if err != nil {
		return a.toEvent(req, httpapi.Problem(req, err)), nil
	}
	return a.toEvent(req, a.router.Dispatch(ctx, req)), nil
}

// toRequest translates the event. Gateway path parameters carry over so
// proxy-style registrations keep working; the router's own bindings win.
func (a *Adapter) toRequest(event events.APIGatewayProxyRequest) (*httpapi.Request, error) {
	req := &httpapi.Request{
		Method:    event.HTTPMethod,
		Path:      event.Path,
		Query:     event.QueryStringParameters,
		Params:    event.PathParameters,
		RequestID: requestID(event),
	}
	for name, value := range event.Headers {
		req.SetHeader(name, value)
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return req, apperr.Validation("", "request body is not valid base64")
		}
		body = decoded
	}
	req.Body = body
	return req, nil
}

func (a *Adapter) toEvent(req *httpapi.Request, resp *httpapi.Response) events.APIGatewayProxyResponse {
	if req.Method != http.MethodOptions {
		httpapi.AnnotateCORS(resp, a.corsOrigin)
	}

	body, err := resp.RenderBody()
	if err != nil {
		a.logger.Error("render response body", "error", err, "request_id", req.RequestID)
		resp = httpapi.NewResponse(http.StatusInternalServerError)
		body = nil
	}

	headers := make(map[string]string, len(resp.Headers)+2)
	for name, value := range resp.Headers {
		headers[name] = value
	}
	headers["X-Request-Id"] = req.RequestID
	if body != nil {
		headers["Content-Type"] = resp.ContentType()
	}
	return events.APIGatewayProxyResponse{
		StatusCode: resp.Status,
		Headers:    headers,
		Body:       string(body),
	}
}

// requestID prefers the gateway's own request id, then an inbound
// X-Request-Id header, then a fresh UUID.
func requestID(event events.APIGatewayProxyRequest) string {
	if id := event.RequestContext.RequestID; id != "" {
		return id
	}
	for name, value := range event.Headers {
		if http.CanonicalHeaderKey(name) == "X-Request-Id" && value != "" {
			return value
		}
	}
	return uuid.New().String()
}
