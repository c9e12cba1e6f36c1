package parlor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockServer creates an httptest server that mimics the parlor API.
func mockServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, field string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   detail,
		"instance": "/apiv2/test",
		"field":    field,
	})
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL: serverURL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(Config{Token: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BaseURL")

	_, err = NewClient(Config{BaseURL: "http://localhost:8080"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token")

	c, err := NewClient(Config{BaseURL: "http://localhost:8080/", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}

func TestCreateDocumentSendsBodyAndParsesETag(t *testing.T) {
	var received CreateDocumentRequest
	var headers http.Header
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /apiv2/internal/files": func(w http.ResponseWriter, r *http.Request) {
			headers = r.Header.Clone()
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Header().Set("ETag", `"etag-1"`)
			w.Header().Set("Location", "/apiv2/internal/files/"+received.ID)
			writeJSON(w, http.StatusCreated, Document{ID: received.ID, Data: received.Data})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	doc, err := client.CreateDocument(context.Background(), CreateDocumentRequest{
		ID:   "cfg",
		Data: json.RawMessage(`{"mode":"dark"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "cfg", doc.ID)
	assert.JSONEq(t, `{"mode":"dark"}`, string(doc.Data))
	assert.Equal(t, "etag-1", doc.ETag)

	assert.Equal(t, "cfg", received.ID)
	assert.Equal(t, "Bearer test-token", headers.Get("Authorization"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, userAgent, headers.Get("User-Agent"))
}

func TestGetGameParsesRoundsAndMoves(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /apiv2/internal/games/g1": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("ETag", `"9f86d081"`)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "g1",
				"type": "darts.501",
				"usersIds": ["u1", "u2"],
				"rounds": [
					{"id": "r1", "moves": [{"id": "m1", "userId": "u1", "value": 60, "valueDecorated": "T20", "time": 12.5}], "isFinished": true, "time": 98.1},
					{"id": "r2", "moves": [], "isFinished": false, "time": 0}
				],
				"isFinished": false
			}`))
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	game, err := client.GetGame(context.Background(), "g1")
	require.NoError(t, err)

	assert.Equal(t, "9f86d081", game.ETag)
	assert.Equal(t, "darts.501", game.Type)
	assert.Equal(t, []string{"u1", "u2"}, game.UsersIDs)
	require.Len(t, game.Rounds, 2)

	first := game.Rounds[0]
	require.Len(t, first.Moves, 1)
	assert.Equal(t, 60.0, first.Moves[0].Value)
	assert.Equal(t, "T20", first.Moves[0].ValueDecorated)
	require.NotNil(t, first.Moves[0].Time)
	assert.Equal(t, 12.5, *first.Moves[0].Time)
	assert.True(t, first.IsFinished)

	assert.Empty(t, game.Rounds[1].Moves)
	assert.False(t, game.IsFinished)
}

func TestIfMatchIsQuotedAndOptional(t *testing.T) {
	var ifMatch []string
	srv := mockServer(t, map[string]http.HandlerFunc{
		"PUT /apiv2/internal/users/u1": func(w http.ResponseWriter, r *http.Request) {
			ifMatch = append(ifMatch, r.Header.Get("If-Match"))
			w.Header().Set("ETag", `"v2"`)
			writeJSON(w, http.StatusOK, User{ID: "u1", Name: "Ada", ExternalID: 7})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	req := ReplaceUserRequest{Name: "Ada", ExternalID: 7}

	user, err := client.ReplaceUser(context.Background(), "u1", req, "v1")
	require.NoError(t, err)
	assert.Equal(t, "v2", user.ETag)

	_, err = client.ReplaceUser(context.Background(), "u1", req, "")
	require.NoError(t, err)

	require.Len(t, ifMatch, 2)
	assert.Equal(t, `"v1"`, ifMatch[0])
	assert.Empty(t, ifMatch[1])
}

func TestDeleteGameSendsIfMatch(t *testing.T) {
	var gotIfMatch string
	srv := mockServer(t, map[string]http.HandlerFunc{
		"DELETE /apiv2/internal/games/g1": func(w http.ResponseWriter, r *http.Request) {
			gotIfMatch = r.Header.Get("If-Match")
			w.WriteHeader(http.StatusNoContent)
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	require.NoError(t, client.DeleteGame(context.Background(), "g1", "v3"))
	assert.Equal(t, `"v3"`, gotIfMatch)
}

func TestListDocumentsEncodesQuery(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /apiv2/internal/files": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "cfg", q.Get("prefix"))
			assert.Equal(t, "2", q.Get("limit"))
			assert.Equal(t, "opaque", q.Get("cursor"))
			writeJSON(w, http.StatusOK, DocumentList{
				Items: []Document{
					{ID: "cfg-a", Data: json.RawMessage(`{"a":1}`)},
					{ID: "cfg-b", Data: json.RawMessage(`{"b":2}`)},
				},
				NextCursor: "next",
			})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	page, err := client.ListDocuments(context.Background(), &ListOptions{
		Prefix: "cfg",
		Limit:  2,
		Cursor: "opaque",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "cfg-a", page.Items[0].ID)
	assert.Equal(t, "next", page.NextCursor)
}

func TestListUsersWithoutOptions(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /apiv2/internal/users": func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.RawQuery)
			writeJSON(w, http.StatusOK, NameList{Names: []string{"u1", "u2"}})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	page, err := client.ListUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, page.Names)
	assert.Empty(t, page.NextCursor)
}

func TestMergeUserOmitsAbsentFields(t *testing.T) {
	var received map[string]json.RawMessage
	srv := mockServer(t, map[string]http.HandlerFunc{
		"PATCH /apiv2/internal/users/u1": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Header().Set("ETag", `"v2"`)
			writeJSON(w, http.StatusOK, User{ID: "u1", Name: "Grace", ExternalID: 7})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	name := "Grace"
	user, err := client.MergeUser(context.Background(), "u1", MergeUserRequest{Name: &name}, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.Name)

	assert.Contains(t, received, "name")
	assert.NotContains(t, received, "externalId")
}

func TestAddMoveBuildsNestedPath(t *testing.T) {
	var received MoveRequest
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /apiv2/internal/games/g1/rounds/r2/moves": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Header().Set("ETag", `"v4"`)
			writeJSON(w, http.StatusCreated, Game{ID: "g1", Type: "darts.501"})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	game, err := client.AddMove(context.Background(), "g1", "r2", MoveRequest{
		ID:     "m9",
		UserID: "u1",
		Value:  25,
	}, "v3")
	require.NoError(t, err)

	assert.Equal(t, "v4", game.ETag)
	assert.Equal(t, "m9", received.ID)
	assert.Equal(t, 25.0, received.Value)
}

func TestFinishRoundSendsEmptyJSONBody(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"PATCH /apiv2/internal/games/g1/rounds/r1/finish": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Header().Set("ETag", `"v5"`)
			writeJSON(w, http.StatusOK, Game{ID: "g1", IsFinished: false})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	game, err := client.FinishRound(context.Background(), "g1", "r1", "v4")
	require.NoError(t, err)
	assert.Equal(t, "v5", game.ETag)
}

func TestMeReturnsCallerProfile(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /apiv2/external/me": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			w.Header().Set("ETag", `"me-1"`)
			writeJSON(w, http.StatusOK, User{ID: "admin-1", Name: "Admin", ExternalID: 1})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	user, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin-1", user.ID)
	assert.Equal(t, "me-1", user.ETag)
}

func TestHealthSkipsAuthorization(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /apiv2/health": func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, HealthStatus{Status: "ok", Version: "1.2.3", Store: "s3", Uptime: "5s"})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
}

func TestProblemResponsesDecodeToError(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /apiv2/internal/files/missing": func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, http.StatusNotFound, "NotFoundError", `document "missing" not found`, "")
		},
		"PUT /apiv2/internal/files/stale": func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, http.StatusPreconditionFailed, "PreconditionFailedError", "entity tag does not match", "")
		},
		"POST /apiv2/internal/users": func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, http.StatusBadRequest, "ValidationError", "name must not be empty", "name")
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.GetDocument(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))

	_, err = client.ReplaceDocument(context.Background(), "stale", ReplaceDocumentRequest{Data: json.RawMessage(`{}`)}, "old")
	require.Error(t, err)
	assert.True(t, IsPreconditionFailed(err))

	_, err = client.CreateUser(context.Background(), CreateUserRequest{ID: "u1"})
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "ValidationError", apiErr.Title)
	assert.Equal(t, "name", apiErr.Field)
	assert.Contains(t, apiErr.Error(), `(field "name")`)
}

func TestNonProblemErrorBodyFallsBack(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /apiv2/internal/files/f1": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>upstream unavailable</html>"))
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.GetDocument(context.Background(), "f1")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Title)
	assert.Contains(t, apiErr.Detail, "upstream unavailable")
}
