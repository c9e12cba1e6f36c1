package parlor

import "encoding/json"

// Document is a generic JSON document. Data is the stored body, byte for
// byte. ETag is taken from the response headers, unquoted; pass it back as
// ifMatch to guard the next write.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`

	ETag string `json:"-"`
}

// User is a stored user profile.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID int    `json:"externalId"`

	ETag string `json:"-"`
}

// Move is one scored move inside a round. Time is seconds into the round
// and is absent when the move was recorded without one.
type Move struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	Value          float64  `json:"value"`
	ValueDecorated string   `json:"valueDecorated"`
	Time           *float64 `json:"time,omitempty"`
}

// Round is one round of a game.
type Round struct {
	ID         string  `json:"id"`
	Moves      []Move  `json:"moves"`
	IsFinished bool    `json:"isFinished"`
	Time       float64 `json:"time"`
}

// Game is a stored game with its full round history.
type Game struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	UsersIDs   []string `json:"usersIds"`
	Rounds     []Round  `json:"rounds"`
	IsFinished bool     `json:"isFinished"`

	ETag string `json:"-"`
}

// Metadata describes a stored entity without its body.
type Metadata struct {
	ETag         string `json:"etag"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

// HealthStatus is the server's health report.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   string `json:"store"`
	Uptime  string `json:"uptime"`
}

// DocumentList is one page of documents with full bodies.
type DocumentList struct {
	Items      []Document `json:"items"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// NameList is one page of entity ids; the list shape for users and games.
type NameList struct {
	Names      []string `json:"names"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// ListOptions are optional filters for the list methods. Cursor round-trips
// from a prior page's NextCursor; a zero Limit lets the server default
// apply.
type ListOptions struct {
	Prefix string
	Limit  int
	Cursor string
}

// --- Request types ---
//
// The replace and merge requests carry no id: the path id is authoritative
// and the server rejects a body id that disagrees with it.

// CreateDocumentRequest is the input for Client.CreateDocument. Data must be
// valid JSON.
type CreateDocumentRequest struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// ReplaceDocumentRequest is the input for Client.ReplaceDocument.
type ReplaceDocumentRequest struct {
	Data json.RawMessage `json:"data"`
}

// MergeDocumentRequest is the input for Client.MergeDocument. Top-level keys
// of Data overwrite the stored ones; both sides must be JSON objects.
type MergeDocumentRequest struct {
	Data json.RawMessage `json:"data,omitempty"`
}

// CreateUserRequest is the input for Client.CreateUser.
type CreateUserRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID int    `json:"externalId"`
}

// ReplaceUserRequest is the input for Client.ReplaceUser: the full new
// state.
type ReplaceUserRequest struct {
	Name       string `json:"name"`
	ExternalID int    `json:"externalId"`
}

// MergeUserRequest is the input for Client.MergeUser. Nil fields keep their
// stored values.
type MergeUserRequest struct {
	Name       *string `json:"name,omitempty"`
	ExternalID *int    `json:"externalId,omitempty"`
}

// MoveRequest is a move on input. Value is required by the server; Time is
// optional.
type MoveRequest struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	Value          float64  `json:"value"`
	ValueDecorated string   `json:"valueDecorated,omitempty"`
	Time           *float64 `json:"time,omitempty"`
}

// RoundRequest is a round on input.
type RoundRequest struct {
	ID         string        `json:"id"`
	Moves      []MoveRequest `json:"moves"`
	IsFinished bool          `json:"isFinished"`
	Time       float64       `json:"time"`
}

// CreateGameRequest is the input for Client.CreateGame.
type CreateGameRequest struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UsersIDs   []string       `json:"usersIds"`
	Rounds     []RoundRequest `json:"rounds"`
	IsFinished bool           `json:"isFinished"`
}

// ReplaceGameRequest is the input for Client.ReplaceGame: the full new
// state.
type ReplaceGameRequest struct {
	Type       string         `json:"type"`
	UsersIDs   []string       `json:"usersIds"`
	Rounds     []RoundRequest `json:"rounds"`
	IsFinished bool           `json:"isFinished"`
}

// MergeGameRequest is the input for Client.MergeGame. Nil fields keep their
// stored values; a non-nil Rounds replaces the whole round history.
type MergeGameRequest struct {
	Type       *string         `json:"type,omitempty"`
	UsersIDs   *[]string       `json:"usersIds,omitempty"`
	Rounds     *[]RoundRequest `json:"rounds,omitempty"`
	IsFinished *bool           `json:"isFinished,omitempty"`
}
