package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/domain"
	"github.com/parlorgames/parlor/internal/dto"
)

// GameService orchestrates game operations, including the sub-resource
// mutations that add rounds and moves and finish them.
type GameService struct {
	repo           domain.GameRepository
	requireIfMatch bool
	ops            metric.Int64Counter
}

// NewGameService creates a GameService.
func NewGameService(repo domain.GameRepository, requireIfMatch bool) *GameService {
	return &GameService{
		repo:           repo,
		requireIfMatch: requireIfMatch,
		ops:            opsCounter("games"),
	}
}

// Create stores a new game, failing with Conflict if the id is taken.
func (s *GameService) Create(ctx context.Context, req dto.CreateGameRequest) (domain.GameEntity, error) {
	entity, err := req.ToEntity()
	if err != nil {
		return domain.GameEntity{}, err
	}
	saved, err := s.repo.Save(ctx, entity, domain.SaveOptions{IfNoneMatch: "*"})
	if err != nil {
		return domain.GameEntity{}, err
	}
	record(ctx, s.ops, "create")
	return saved, nil
}

// Get loads a game. A matching ifNoneMatch short-circuits with NotModified.
func (s *GameService) Get(ctx context.Context, id, ifNoneMatch string) (domain.GameEntity, error) {
	entity, err := s.repo.FindByID(ctx, id, domain.FindOptions{IfNoneMatch: ifNoneMatch})
	if err != nil {
		return domain.GameEntity{}, err
	}
	if entity == nil {
		return domain.GameEntity{}, apperr.NotFound("game", id)
	}
	record(ctx, s.ops, "get")
	return *entity, nil
}

// Replace swaps the game state wholesale.
func (s *GameService) Replace(ctx context.Context, id string, req dto.ReplaceGameRequest, ifMatch string) (domain.GameEntity, error) {
	if err := requirePrecondition(s.requireIfMatch, ifMatch); err != nil {
		return domain.GameEntity{}, err
	}
	next, err := req.ToEntity(id)
	if err != nil {
		return domain.GameEntity{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.GameEntity{}, err
	}
	next = next.WithMeta(current.Meta)

	saved, err := s.repo.Save(ctx, next, domain.SaveOptions{IfMatch: updateCondition(ifMatch, current.Meta.ETag)})
	if err != nil {
		return domain.GameEntity{}, err
	}
	record(ctx, s.ops, "replace")
	return saved, nil
}

// Merge overlays the provided fields onto the stored game.
func (s *GameService) Merge(ctx context.Context, id string, req dto.MergeGameRequest, ifMatch string) (domain.GameEntity, error) {
	if err := requirePrecondition(s.requireIfMatch, ifMatch); err != nil {
		return domain.GameEntity{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.GameEntity{}, err
	}
	next, err := req.Apply(current)
	if err != nil {
		return domain.GameEntity{}, err
	}

	saved, err := s.repo.Save(ctx, next, domain.SaveOptions{IfMatch: updateCondition(ifMatch, current.Meta.ETag)})
	if err != nil {
		return domain.GameEntity{}, err
	}
	record(ctx, s.ops, "merge")
	return saved, nil
}

// Delete removes a game, optionally guarded by ifMatch.
func (s *GameService) Delete(ctx context.Context, id, ifMatch string) error {
	if err := s.repo.Delete(ctx, id, domain.DeleteOptions{IfMatch: ifMatch}); err != nil {
		return err
	}
	record(ctx, s.ops, "delete")
	return nil
}

// List pages through games.
func (s *GameService) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.GameEntity], error) {
	page, err := s.repo.FindAll(ctx, q)
	if err != nil {
		return domain.Page[domain.GameEntity]{}, err
	}
	record(ctx, s.ops, "list")
	return page, nil
}

// Metadata returns the game's etag, size and last-modified time.
func (s *GameService) Metadata(ctx context.Context, id string) (domain.Metadata, error) {
	meta, err := s.repo.GetMetadata(ctx, id)
	if err != nil {
		return domain.Metadata{}, err
	}
	record(ctx, s.ops, "metadata")
	return meta, nil
}

// AddRound appends a round to an open game.
func (s *GameService) AddRound(ctx context.Context, gameID string, req dto.RoundRequest, ifMatch string) (domain.GameEntity, error) {
	round, err := req.ToDomain()
	if err != nil {
		return domain.GameEntity{}, err
	}
	return s.mutate(ctx, gameID, ifMatch, "add_round", func(e domain.GameEntity) (domain.GameEntity, error) {
		return e.AddRound(round)
	})
}

// AddMove appends a move to an open round of an open game.
func (s *GameService) AddMove(ctx context.Context, gameID, roundID string, req dto.MoveRequest, ifMatch string) (domain.GameEntity, error) {
	move, err := req.ToDomain()
	if err != nil {
		return domain.GameEntity{}, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("parlor.round_id", roundID))
	return s.mutate(ctx, gameID, ifMatch, "add_move", func(e domain.GameEntity) (domain.GameEntity, error) {
		return e.AddMoveToRound(roundID, move)
	})
}

// FinishRound marks a round finished; further moves to it are rejected.
func (s *GameService) FinishRound(ctx context.Context, gameID, roundID, ifMatch string) (domain.GameEntity, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("parlor.round_id", roundID))
	return s.mutate(ctx, gameID, ifMatch, "finish_round", func(e domain.GameEntity) (domain.GameEntity, error) {
		return e.FinishRound(roundID)
	})
}

// Finish marks the game finished; the state is terminal.
func (s *GameService) Finish(ctx context.Context, gameID, ifMatch string) (domain.GameEntity, error) {
	return s.mutate(ctx, gameID, ifMatch, "finish", func(e domain.GameEntity) (domain.GameEntity, error) {
		return e.Finish()
	})
}

// mutate runs the load-apply-save cycle shared by the sub-resource
// operations. The save cites the caller's If-Match when given, otherwise
// the etag of the game as loaded.
func (s *GameService) mutate(ctx context.Context, gameID, ifMatch, op string, apply func(domain.GameEntity) (domain.GameEntity, error)) (domain.GameEntity, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("parlor.game_id", gameID))

	current, err := s.load(ctx, gameID)
	if err != nil {
		return domain.GameEntity{}, err
	}
	next, err := apply(current)
	if err != nil {
		return domain.GameEntity{}, err
	}

	saved, err := s.repo.Save(ctx, next, domain.SaveOptions{IfMatch: updateCondition(ifMatch, current.Meta.ETag)})
	if err != nil {
		return domain.GameEntity{}, err
	}
	record(ctx, s.ops, op)
	return saved, nil
}

func (s *GameService) load(ctx context.Context, id string) (domain.GameEntity, error) {
	current, err := s.repo.FindByID(ctx, id, domain.FindOptions{})
	if err != nil {
		return domain.GameEntity{}, err
	}
	if current == nil {
		return domain.GameEntity{}, apperr.NotFound("game", id)
	}
	return *current, nil
}
