package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/parlorgames/parlor/internal/apperr"
)

const (
	// GameTypeMaxLength bounds the free-form game type, in runes.
	GameTypeMaxLength = 100
	// GameMinUsers and GameMaxUsers bound the player list.
	GameMinUsers = 1
	GameMaxUsers = 10
)

// Move records a single submission inside a round. Immutable.
type Move struct {
	ID             string
	UserID         string
	Value          float64
	ValueDecorated string

	// Time is the client-reported moment of the move. Optional; persisted
	// only when provided.
	Time *float64
}

// NewMove validates all fields and builds a move.
func NewMove(id, userID string, value float64, valueDecorated string, t *float64) (Move, error) {
	if err := ValidateID("id", id); err != nil {
		return Move{}, err
	}
	if err := ValidateID("userId", userID); err != nil {
		return Move{}, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Move{}, apperr.Validation("value", "value must be a finite number")
	}
	if t != nil && (math.IsNaN(*t) || math.IsInf(*t, 0)) {
		return Move{}, apperr.Validation("time", "time must be a finite number")
	}
	return Move{ID: id, UserID: userID, Value: value, ValueDecorated: valueDecorated, Time: t}, nil
}

// Round is an ordered sequence of moves inside a game. Immutable; operations
// return new rounds. A finished round rejects further mutation.
type Round struct {
	ID         string
	Moves      []Move
	IsFinished bool
	Time       float64
}

// NewRound validates fields and builds a round. moves is copied.
func NewRound(id string, moves []Move, isFinished bool, time float64) (Round, error) {
	if err := ValidateID("id", id); err != nil {
		return Round{}, err
	}
	if math.IsNaN(time) || math.IsInf(time, 0) {
		return Round{}, apperr.Validation("time", "time must be a finite number")
	}
	return Round{ID: id, Moves: slices.Clone(moves), IsFinished: isFinished, Time: time}, nil
}

// AddMove returns a round with the move appended.
func (r Round) AddMove(m Move) (Round, error) {
	if r.IsFinished {
		return Round{}, apperr.Validationf("", "round %q is finished", r.ID)
	}
	moves := make([]Move, 0, len(r.Moves)+1)
	moves = append(moves, r.Moves...)
	moves = append(moves, m)
	return Round{ID: r.ID, Moves: moves, IsFinished: false, Time: r.Time}, nil
}

// Finish returns the round marked finished.
func (r Round) Finish() (Round, error) {
	if r.IsFinished {
		return Round{}, apperr.Validationf("", "round %q is already finished", r.ID)
	}
	return Round{ID: r.ID, Moves: slices.Clone(r.Moves), IsFinished: true, Time: r.Time}, nil
}

// Game is the pure game aggregate. Immutable; operations validate and return
// new games. Once finished, a game rejects every mutation.
type Game struct {
	ID         string
	Type       string
	UsersIDs   []string
	Rounds     []Round
	IsFinished bool
}

// NewGame validates all fields and builds a game. usersIDs and rounds are
// copied.
func NewGame(id, gameType string, usersIDs []string, rounds []Round, isFinished bool) (Game, error) {
	if err := ValidateID("id", id); err != nil {
		return Game{}, err
	}
	if n := utf8.RuneCountInString(gameType); n < 1 || n > GameTypeMaxLength {
		return Game{}, apperr.Validationf("type", "type must be 1-%d characters", GameTypeMaxLength)
	}
	if len(usersIDs) < GameMinUsers || len(usersIDs) > GameMaxUsers {
		return Game{}, apperr.Validationf("usersIds", "usersIds must contain %d-%d entries", GameMinUsers, GameMaxUsers)
	}
	seen := make(map[string]struct{}, len(usersIDs))
	for _, uid := range usersIDs {
		if err := ValidateID("usersIds", uid); err != nil {
			return Game{}, err
		}
		if _, dup := seen[uid]; dup {
			return Game{}, apperr.Validationf("usersIds", "duplicate user id %q in usersIds", uid)
		}
		seen[uid] = struct{}{}
	}
	return Game{
		ID:         id,
		Type:       gameType,
		UsersIDs:   slices.Clone(usersIDs),
		Rounds:     slices.Clone(rounds),
		IsFinished: isFinished,
	}, nil
}

func (g Game) ensureOpen() error {
	if g.IsFinished {
		return apperr.Validationf("", "game %q is finished", g.ID)
	}
	return nil
}

func (g Game) roundIndex(roundID string) int {
	return slices.IndexFunc(g.Rounds, func(r Round) bool { return r.ID == roundID })
}

func (g Game) with(rounds []Round, isFinished bool) Game {
	return Game{
		ID:         g.ID,
		Type:       g.Type,
		UsersIDs:   slices.Clone(g.UsersIDs),
		Rounds:     rounds,
		IsFinished: isFinished,
	}
}

// AddRound returns a game with the round appended.
func (g Game) AddRound(r Round) (Game, error) {
	if err := g.ensureOpen(); err != nil {
		return Game{}, err
	}
	rounds := make([]Round, 0, len(g.Rounds)+1)
	rounds = append(rounds, g.Rounds...)
	rounds = append(rounds, r)
	return g.with(rounds, false), nil
}

// AddMoveToRound returns a game with the target round replaced by
// round.AddMove(m). A missing round id is a validation failure.
func (g Game) AddMoveToRound(roundID string, m Move) (Game, error) {
	if err := g.ensureOpen(); err != nil {
		return Game{}, err
	}
	idx := g.roundIndex(roundID)
	if idx < 0 {
		return Game{}, apperr.Validationf("roundId", "round %q not found in game %q", roundID, g.ID)
	}
	updated, err := g.Rounds[idx].AddMove(m)
	if err != nil {
		return Game{}, err
	}
	rounds := slices.Clone(g.Rounds)
	rounds[idx] = updated
	return g.with(rounds, false), nil
}

// FinishRound returns a game with the target round finished.
func (g Game) FinishRound(roundID string) (Game, error) {
	if err := g.ensureOpen(); err != nil {
		return Game{}, err
	}
	idx := g.roundIndex(roundID)
	if idx < 0 {
		return Game{}, apperr.Validationf("roundId", "round %q not found in game %q", roundID, g.ID)
	}
	updated, err := g.Rounds[idx].Finish()
	if err != nil {
		return Game{}, err
	}
	rounds := slices.Clone(g.Rounds)
	rounds[idx] = updated
	return g.with(rounds, false), nil
}

// Finish returns the game marked finished. Finished is terminal.
func (g Game) Finish() (Game, error) {
	if err := g.ensureOpen(); err != nil {
		return Game{}, err
	}
	return g.with(slices.Clone(g.Rounds), true), nil
}

// movePayload, roundPayload, and gamePayload are the persisted data subtrees.
type movePayload struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	Value          float64  `json:"value"`
	ValueDecorated string   `json:"valueDecorated"`
	Time           *float64 `json:"time,omitempty"`
}

type roundPayload struct {
	ID         string        `json:"id"`
	Moves      []movePayload `json:"moves"`
	IsFinished bool          `json:"isFinished"`
	Time       float64       `json:"time"`
}

type gamePayload struct {
	Type       string         `json:"type"`
	UsersIDs   []string       `json:"usersIds"`
	Rounds     []roundPayload `json:"rounds"`
	IsFinished bool           `json:"isFinished"`
}

func moveToPayload(m Move) movePayload {
	return movePayload{ID: m.ID, UserID: m.UserID, Value: m.Value, ValueDecorated: m.ValueDecorated, Time: m.Time}
}

func roundToPayload(r Round) roundPayload {
	moves := make([]movePayload, len(r.Moves))
	for i, m := range r.Moves {
		moves[i] = moveToPayload(m)
	}
	return roundPayload{ID: r.ID, Moves: moves, IsFinished: r.IsFinished, Time: r.Time}
}

func moveFromPayload(p movePayload) (Move, error) {
	return NewMove(p.ID, p.UserID, p.Value, p.ValueDecorated, p.Time)
}

func roundFromPayload(p roundPayload) (Round, error) {
	moves := make([]Move, len(p.Moves))
	for i, mp := range p.Moves {
		m, err := moveFromPayload(mp)
		if err != nil {
			return Round{}, err
		}
		moves[i] = m
	}
	return NewRound(p.ID, moves, p.IsFinished, p.Time)
}

// GameEntity wraps a Game with the metadata of its stored object. Operations
// delegate to the game and carry the metadata forward.
type GameEntity struct {
	Game Game
	Meta Metadata
}

// NewGameEntity wraps an unpersisted game.
func NewGameEntity(game Game) GameEntity {
	return GameEntity{Game: game}
}

// ParseGameEntity validates body as a stored game payload for id, including
// the round and move subtrees, and builds the entity carrying meta.
func ParseGameEntity(id string, body []byte, meta Metadata) (GameEntity, error) {
	var p gamePayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return GameEntity{}, apperr.Validationf("", "game payload: %v", err)
	}
	rounds := make([]Round, len(p.Rounds))
	for i, rp := range p.Rounds {
		r, err := roundFromPayload(rp)
		if err != nil {
			return GameEntity{}, err
		}
		rounds[i] = r
	}
	game, err := NewGame(id, p.Type, p.UsersIDs, rounds, p.IsFinished)
	if err != nil {
		return GameEntity{}, err
	}
	return GameEntity{Game: game, Meta: meta}, nil
}

// ID returns the entity identifier.
func (e GameEntity) ID() string { return e.Game.ID }

// Payload serializes the persisted data subtree.
func (e GameEntity) Payload() ([]byte, error) {
	rounds := make([]roundPayload, len(e.Game.Rounds))
	for i, r := range e.Game.Rounds {
		rounds[i] = roundToPayload(r)
	}
	b, err := json.Marshal(gamePayload{
		Type:       e.Game.Type,
		UsersIDs:   e.Game.UsersIDs,
		Rounds:     rounds,
		IsFinished: e.Game.IsFinished,
	})
	if err != nil {
		return nil, fmt.Errorf("domain: marshal game %s: %w", e.Game.ID, err)
	}
	return b, nil
}

// WithMeta returns the entity carrying the given store metadata.
func (e GameEntity) WithMeta(meta Metadata) GameEntity {
	return GameEntity{Game: e.Game, Meta: meta}
}

// AddRound delegates to the game and keeps the current metadata.
func (e GameEntity) AddRound(r Round) (GameEntity, error) {
	g, err := e.Game.AddRound(r)
	if err != nil {
		return GameEntity{}, err
	}
	return GameEntity{Game: g, Meta: e.Meta}, nil
}

// AddMoveToRound delegates to the game and keeps the current metadata.
func (e GameEntity) AddMoveToRound(roundID string, m Move) (GameEntity, error) {
	g, err := e.Game.AddMoveToRound(roundID, m)
	if err != nil {
		return GameEntity{}, err
	}
	return GameEntity{Game: g, Meta: e.Meta}, nil
}

// FinishRound delegates to the game and keeps the current metadata.
func (e GameEntity) FinishRound(roundID string) (GameEntity, error) {
	g, err := e.Game.FinishRound(roundID)
	if err != nil {
		return GameEntity{}, err
	}
	return GameEntity{Game: g, Meta: e.Meta}, nil
}

// Finish delegates to the game and keeps the current metadata.
func (e GameEntity) Finish() (GameEntity, error) {
	g, err := e.Game.Finish()
	if err != nil {
		return GameEntity{}, err
	}
	return GameEntity{Game: g, Meta: e.Meta}, nil
}
