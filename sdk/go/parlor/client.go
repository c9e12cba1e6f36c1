package parlor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// userAgent identifies this SDK version to the server.
const userAgent = "parlor-go/0.1.0"

// Route paths, mirroring the server's route table.
const (
	basePath   = "/apiv2"
	healthPath = basePath + "/health"
	mePath     = basePath + "/external/me"
	filesPath  = basePath + "/internal/files"
	usersPath  = basePath + "/internal/users"
	gamesPath  = basePath + "/internal/games"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the parlor server (e.g. "http://localhost:8080").
	BaseURL string

	// Token is the bearer token sent on every request. The internal surface
	// requires an admin token; Me accepts any authenticated one.
	Token string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the parlor JSON store API.
// All methods are safe for concurrent use.
//
// Mutating methods take an ifMatch parameter: the unquoted entity tag from a
// prior read, or "" for an unconditional write. A stale tag fails with a 412
// (see IsPreconditionFailed); servers running with PARLOR_REQUIRE_IF_MATCH
// reject "" on updates and deletes with a 428.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL or Token is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("parlor: BaseURL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("parlor: Token is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  httpClient,
	}, nil
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// CreateDocument stores a new document under its id. Fails with a 409 when
// the id is already taken.
func (c *Client) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	var doc Document
	etag, err := c.send(ctx, http.MethodPost, filesPath, req, "", &doc)
	if err != nil {
		return nil, err
	}
	doc.ETag = etag
	return &doc, nil
}

// GetDocument retrieves a document by id.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	etag, err := c.get(ctx, filesPath+"/"+id, &doc)
	if err != nil {
		return nil, err
	}
	doc.ETag = etag
	return &doc, nil
}

// DocumentMeta retrieves a document's metadata without its body.
func (c *Client) DocumentMeta(ctx context.Context, id string) (*Metadata, error) {
	var meta Metadata
	if _, err := c.get(ctx, filesPath+"/"+id+"/meta", &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ReplaceDocument overwrites a document's body.
func (c *Client) ReplaceDocument(ctx context.Context, id string, req ReplaceDocumentRequest, ifMatch string) (*Document, error) {
	var doc Document
	etag, err := c.send(ctx, http.MethodPut, filesPath+"/"+id, req, ifMatch, &doc)
	if err != nil {
		return nil, err
	}
	doc.ETag = etag
	return &doc, nil
}

// MergeDocument shallowly merges req.Data into the stored document. Both
// must be JSON objects.
func (c *Client) MergeDocument(ctx context.Context, id string, req MergeDocumentRequest, ifMatch string) (*Document, error) {
	var doc Document
	etag, err := c.send(ctx, http.MethodPatch, filesPath+"/"+id, req, ifMatch, &doc)
	if err != nil {
		return nil, err
	}
	doc.ETag = etag
	return &doc, nil
}

// DeleteDocument removes a document. Deleting an absent id is an error.
func (c *Client) DeleteDocument(ctx context.Context, id string, ifMatch string) error {
	return c.doDelete(ctx, filesPath+"/"+id, ifMatch)
}

// ListDocuments retrieves one page of documents, bodies included. Nil opts
// list from the start with the server's default page size.
func (c *Client) ListDocuments(ctx context.Context, opts *ListOptions) (*DocumentList, error) {
	var page DocumentList
	if _, err := c.get(ctx, filesPath+listQuery(opts), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// CreateUser stores a new user profile under its id.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	var user User
	etag, err := c.send(ctx, http.MethodPost, usersPath, req, "", &user)
	if err != nil {
		return nil, err
	}
	user.ETag = etag
	return &user, nil
}

// GetUser retrieves a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	etag, err := c.get(ctx, usersPath+"/"+id, &user)
	if err != nil {
		return nil, err
	}
	user.ETag = etag
	return &user, nil
}

// UserMeta retrieves a user's metadata without its body.
func (c *Client) UserMeta(ctx context.Context, id string) (*Metadata, error) {
	var meta Metadata
	if _, err := c.get(ctx, usersPath+"/"+id+"/meta", &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ReplaceUser overwrites a user profile with the full new state.
func (c *Client) ReplaceUser(ctx context.Context, id string, req ReplaceUserRequest, ifMatch string) (*User, error) {
	var user User
	etag, err := c.send(ctx, http.MethodPut, usersPath+"/"+id, req, ifMatch, &user)
	if err != nil {
		return nil, err
	}
	user.ETag = etag
	return &user, nil
}

// MergeUser updates the provided fields and keeps the rest.
func (c *Client) MergeUser(ctx context.Context, id string, req MergeUserRequest, ifMatch string) (*User, error) {
	var user User
	etag, err := c.send(ctx, http.MethodPatch, usersPath+"/"+id, req, ifMatch, &user)
	if err != nil {
		return nil, err
	}
	user.ETag = etag
	return &user, nil
}

// DeleteUser removes a user profile.
func (c *Client) DeleteUser(ctx context.Context, id string, ifMatch string) error {
	return c.doDelete(ctx, usersPath+"/"+id, ifMatch)
}

// ListUsers retrieves one page of user ids.
func (c *Client) ListUsers(ctx context.Context, opts *ListOptions) (*NameList, error) {
	var page NameList
	if _, err := c.get(ctx, usersPath+listQuery(opts), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ---------------------------------------------------------------------------
// Games
// ---------------------------------------------------------------------------

// CreateGame stores a new game under its id.
func (c *Client) CreateGame(ctx context.Context, req CreateGameRequest) (*Game, error) {
	var game Game
	etag, err := c.send(ctx, http.MethodPost, gamesPath, req, "", &game)
	if err != nil {
		return nil, err
	}
	game.ETag = etag
	return &game, nil
}

// GetGame retrieves a game by id with its full round history.
func (c *Client) GetGame(ctx context.Context, id string) (*Game, error) {
	var game Game
	etag, err := c.get(ctx, gamesPath+"/"+id, &game)
	if err != nil {
		return nil, err
	}
	game.ETag = etag
	return &game, nil
}

// GameMeta retrieves a game's metadata without its body.
func (c *Client) GameMeta(ctx context.Context, id string) (*Metadata, error) {
	var meta Metadata
	if _, err := c.get(ctx, gamesPath+"/"+id+"/meta", &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ReplaceGame overwrites a game with the full new state.
func (c *Client) ReplaceGame(ctx context.Context, id string, req ReplaceGameRequest, ifMatch string) (*Game, error) {
	var game Game
	etag, err := c.send(ctx, http.MethodPut, gamesPath+"/"+id, req, ifMatch, &game)
	if err != nil {
		return nil, err
	}
	game.ETag = etag
	return &game, nil
}

// MergeGame updates the provided fields and keeps the rest.
func (c *Client) MergeGame(ctx context.Context, id string, req MergeGameRequest, ifMatch string) (*Game, error) {
	var game Game
	etag, err := c.send(ctx, http.MethodPatch, gamesPath+"/"+id, req, ifMatch, &game)
	if err != nil {
		return nil, err
	}
	game.ETag = etag
	return &game, nil
}

// DeleteGame removes a game.
func (c *Client) DeleteGame(ctx context.Context, id string, ifMatch string) error {
	return c.doDelete(ctx, gamesPath+"/"+id, ifMatch)
}

// ListGames retrieves one page of game ids.
func (c *Client) ListGames(ctx context.Context, opts *ListOptions) (*NameList, error) {
	var page NameList
	if _, err := c.get(ctx, gamesPath+listQuery(opts), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AddRound appends a round to a game. Fails with a 409 when the game or its
// last round is already finished. Returns the full updated game.
func (c *Client) AddRound(ctx context.Context, gameID string, req RoundRequest, ifMatch string) (*Game, error) {
	var game Game
	etag, err := c.send(ctx, http.MethodPost, gamesPath+"/"+gameID+"/rounds", req, ifMatch, &game)
	if err != nil {
		return nil, err
	}
	game.ETag = etag
	return &game, nil
}

// AddMove appends a move to an open round of a game.
func (c *Client) AddMove(ctx context.Context, gameID, roundID string, req MoveRequest, ifMatch string) (*Game, error) {
	var game Game
	etag, err := c.send(ctx, http.MethodPost, gamesPath+"/"+gameID+"/rounds/"+roundID+"/moves", req, ifMatch, &game)
	if err != nil {
		return nil, err
	}
	game.ETag = etag
	return &game, nil
}

// FinishRound marks a round finished. Finishing a finished round is an
// error.
func (c *Client) FinishRound(ctx context.Context, gameID, roundID string, ifMatch string) (*Game, error) {
	var game Game
	etag, err := c.send(ctx, http.MethodPatch, gamesPath+"/"+gameID+"/rounds/"+roundID+"/finish", nil, ifMatch, &game)
	if err != nil {
		return nil, err
	}
	game.ETag = etag
	return &game, nil
}

// FinishGame marks a game finished, closing any open round with it.
func (c *Client) FinishGame(ctx context.Context, gameID string, ifMatch string) (*Game, error) {
	var game Game
	etag, err := c.send(ctx, http.MethodPatch, gamesPath+"/"+gameID+"/finish", nil, ifMatch, &game)
	if err != nil {
		return nil, err
	}
	game.ETag = etag
	return &game, nil
}

// ---------------------------------------------------------------------------
// Me and health
// ---------------------------------------------------------------------------

// Me retrieves the user entity whose id is the token's subject. Works for
// any authenticated role; 404 when no such entity is stored.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	etag, err := c.get(ctx, mePath, &user)
	if err != nil {
		return nil, err
	}
	user.ETag = etag
	return &user, nil
}

// Health checks the server's health status. This endpoint does not require
// authentication and will work even if the client's token is invalid.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var resp HealthStatus
	if err := c.getNoAuth(ctx, healthPath, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// listQuery renders opts as a query string, or "" when there is nothing to
// send.
func listQuery(opts *ListOptions) string {
	if opts == nil {
		return ""
	}
	params := url.Values{}
	if opts.Prefix != "" {
		params.Set("prefix", opts.Prefix)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		params.Set("cursor", opts.Cursor)
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

func (c *Client) get(ctx context.Context, path string, dest any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("parlor: create request: %w", err)
	}

	return c.doRequest(req, dest)
}

// send issues a request with a JSON body. A nil body sends an empty one,
// for the finish endpoints.
func (c *Client) send(ctx context.Context, method, path string, body any, ifMatch string, dest any) (string, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("parlor: marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", fmt.Errorf("parlor: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ifMatch != "" {
		req.Header.Set("If-Match", quoteETag(ifMatch))
	}

	return c.doRequest(req, dest)
}

func (c *Client) doDelete(ctx context.Context, path, ifMatch string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("parlor: create request: %w", err)
	}
	if ifMatch != "" {
		req.Header.Set("If-Match", quoteETag(ifMatch))
	}

	_, err = c.doRequest(req, nil)
	return err
}

func (c *Client) getNoAuth(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("parlor: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("parlor: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	_, err = handleResponse(resp, dest)
	return err
}

// doRequest sends req with credentials attached and decodes the response
// into dest. It returns the response's entity tag, unquoted, when one is
// present.
func (c *Client) doRequest(req *http.Request, dest any) (string, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("parlor: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) (string, error) {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parlor: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	etag := unquoteETag(resp.Header.Get("ETag"))

	// 204 No Content carries nothing to decode.
	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return etag, nil
	}

	if err := json.Unmarshal(bodyBytes, dest); err != nil {
		return "", fmt.Errorf("parlor: decode response body: %w", err)
	}
	return etag, nil
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var problem struct {
		Type     string `json:"type"`
		Title    string `json:"title"`
		Detail   string `json:"detail"`
		Instance string `json:"instance"`
		Field    string `json:"field"`
	}
	if err := json.Unmarshal(body, &problem); err == nil && problem.Title != "" {
		apiErr.Type = problem.Type
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
		apiErr.Instance = problem.Instance
		apiErr.Field = problem.Field
	} else {
		apiErr.Title = http.StatusText(statusCode)
		apiErr.Detail = string(body)
	}

	return apiErr
}

// quoteETag wraps an entity tag in the double quotes the If-Match header
// requires. Already-quoted tags pass through.
func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}

// unquoteETag strips the quotes from a response ETag header value.
func unquoteETag(etag string) string {
	return strings.Trim(etag, `"`)
}
