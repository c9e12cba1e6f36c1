package dto

import (
	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/domain"
)

// MoveRequest is the wire shape of a move on input. Value is required;
// time is optional and persisted only when provided.
type MoveRequest struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	Value          *float64 `json:"value"`
	ValueDecorated string   `json:"valueDecorated"`
	Time           *float64 `json:"time"`
}

// ToDomain builds the domain move.
func (r MoveRequest) ToDomain() (domain.Move, error) {
	if r.Value == nil {
		return domain.Move{}, apperr.Validation("value", "value is required")
	}
	return domain.NewMove(r.ID, r.UserID, *r.Value, r.ValueDecorated, r.Time)
}

// RoundRequest is the wire shape of a round on input. Moves defaults to
// empty, isFinished to false, time to 0.
type RoundRequest struct {
	ID         string        `json:"id"`
	Moves      []MoveRequest `json:"moves"`
	IsFinished bool          `json:"isFinished"`
	Time       float64       `json:"time"`
}

// ToDomain builds the domain round, validating every move.
func (r RoundRequest) ToDomain() (domain.Round, error) {
	moves := make([]domain.Move, len(r.Moves))
	for i, mr := range r.Moves {
		m, err := mr.ToDomain()
		if err != nil {
			return domain.Round{}, err
		}
		moves[i] = m
	}
	return domain.NewRound(r.ID, moves, r.IsFinished, r.Time)
}

func roundsToDomain(reqs []RoundRequest) ([]domain.Round, error) {
	rounds := make([]domain.Round, len(reqs))
	for i, rr := range reqs {
		r, err := rr.ToDomain()
		if err != nil {
			return nil, err
		}
		rounds[i] = r
	}
	return rounds, nil
}

// CreateGameRequest is the POST body for a game.
type CreateGameRequest struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UsersIDs   []string       `json:"usersIds"`
	Rounds     []RoundRequest `json:"rounds"`
	IsFinished bool           `json:"isFinished"`
}

// ToEntity builds an unpersisted game entity.
func (r CreateGameRequest) ToEntity() (domain.GameEntity, error) {
	rounds, err := roundsToDomain(r.Rounds)
	if err != nil {
		return domain.GameEntity{}, err
	}
	g, err := domain.NewGame(r.ID, r.Type, r.UsersIDs, rounds, r.IsFinished)
	if err != nil {
		return domain.GameEntity{}, err
	}
	return domain.NewGameEntity(g), nil
}

// ReplaceGameRequest is the PUT body: full state. ID, when present, must
// equal the path id.
type ReplaceGameRequest struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UsersIDs   []string       `json:"usersIds"`
	Rounds     []RoundRequest `json:"rounds"`
	IsFinished bool           `json:"isFinished"`
}

// ToEntity builds the replacement entity for the path id.
func (r ReplaceGameRequest) ToEntity(id string) (domain.GameEntity, error) {
	if err := CheckBodyID(r.ID, id); err != nil {
		return domain.GameEntity{}, err
	}
	rounds, err := roundsToDomain(r.Rounds)
	if err != nil {
		return domain.GameEntity{}, err
	}
	g, err := domain.NewGame(id, r.Type, r.UsersIDs, rounds, r.IsFinished)
	if err != nil {
		return domain.GameEntity{}, err
	}
	return domain.NewGameEntity(g), nil
}

// MergeGameRequest is the PATCH body. Absent fields keep their stored
// values.
type MergeGameRequest struct {
	ID         *string         `json:"id"`
	Type       *string         `json:"type"`
	UsersIDs   *[]string       `json:"usersIds"`
	Rounds     *[]RoundRequest `json:"rounds"`
	IsFinished *bool           `json:"isFinished"`
}

// Apply overlays the provided fields on current and revalidates the whole
// aggregate.
func (r MergeGameRequest) Apply(current domain.GameEntity) (domain.GameEntity, error) {
	if r.ID != nil {
		if err := CheckBodyID(*r.ID, current.ID()); err != nil {
			return domain.GameEntity{}, err
		}
	}
	gameType := current.Game.Type
	if r.Type != nil {
		gameType = *r.Type
	}
	usersIDs := current.Game.UsersIDs
	if r.UsersIDs != nil {
		usersIDs = *r.UsersIDs
	}
	rounds := current.Game.Rounds
	if r.Rounds != nil {
		var err error
		if rounds, err = roundsToDomain(*r.Rounds); err != nil {
			return domain.GameEntity{}, err
		}
	}
	isFinished := current.Game.IsFinished
	if r.IsFinished != nil {
		isFinished = *r.IsFinished
	}
	g, err := domain.NewGame(current.ID(), gameType, usersIDs, rounds, isFinished)
	if err != nil {
		return domain.GameEntity{}, err
	}
	return domain.NewGameEntity(g).WithMeta(current.Meta), nil
}

// MoveResponse is the wire shape of a move.
type MoveResponse struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	Value          float64  `json:"value"`
	ValueDecorated string   `json:"valueDecorated"`
	Time           *float64 `json:"time,omitempty"`
}

// RoundResponse is the wire shape of a round.
type RoundResponse struct {
	ID         string         `json:"id"`
	Moves      []MoveResponse `json:"moves"`
	IsFinished bool           `json:"isFinished"`
	Time       float64        `json:"time"`
}

// GameResponse is the wire shape of a game entity.
type GameResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	UsersIDs   []string        `json:"usersIds"`
	Rounds     []RoundResponse `json:"rounds"`
	IsFinished bool            `json:"isFinished"`
}

// NewGameResponse builds the response view of e.
func NewGameResponse(e domain.GameEntity) GameResponse {
	rounds := make([]RoundResponse, len(e.Game.Rounds))
	for i, r := range e.Game.Rounds {
		moves := make([]MoveResponse, len(r.Moves))
		for j, m := range r.Moves {
			moves[j] = MoveResponse{ID: m.ID, UserID: m.UserID, Value: m.Value, ValueDecorated: m.ValueDecorated, Time: m.Time}
		}
		rounds[i] = RoundResponse{ID: r.ID, Moves: moves, IsFinished: r.IsFinished, Time: r.Time}
	}
	return GameResponse{
		ID:         e.Game.ID,
		Type:       e.Game.Type,
		UsersIDs:   e.Game.UsersIDs,
		Rounds:     rounds,
		IsFinished: e.Game.IsFinished,
	}
}
