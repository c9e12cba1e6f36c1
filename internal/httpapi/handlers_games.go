package httpapi

import (
	"context"

	"github.com/parlorgames/parlor/internal/dto"
)

// HandleListGames handles GET /apiv2/internal/games. The page carries ids
// only.
func (h *Handlers) HandleListGames(ctx context.Context, req *Request) (*Response, error) {
	q, err := listQuery(req)
	if err != nil {
		return nil, err
	}
	page, err := h.games.List(ctx, q)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(page.Items))
	for i, e := range page.Items {
		ids[i] = e.ID()
	}
	return OK(dto.NewNameListResponse(ids, page.NextCursor)).WithCacheControl(cacheControl), nil
}

// HandleCreateGame handles POST /apiv2/internal/games.
func (h *Handlers) HandleCreateGame(ctx context.Context, req *Request) (*Response, error) {
	var body dto.CreateGameRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	entity, err := h.games.Create(ctx, body)
	if err != nil {
		return nil, err
	}
	return Created(dto.NewGameResponse(entity)).
		WithLocation(gamesPath + "/" + entity.ID()).
		WithETag(entity.Meta.ETag), nil
}

// HandleGetGame handles GET /apiv2/internal/games/{id}.
func (h *Handlers) HandleGetGame(ctx context.Context, req *Request) (*Response, error) {
	entity, err := h.games.Get(ctx, pathID(req, "id"), req.IfNoneMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewGameResponse(entity)).
		WithETag(entity.Meta.ETag).
		WithCacheControl(cacheControl), nil
}

// HandleGameMeta handles GET /apiv2/internal/games/{id}/meta.
func (h *Handlers) HandleGameMeta(ctx context.Context, req *Request) (*Response, error) {
	meta, err := h.games.Metadata(ctx, pathID(req, "id"))
	if err != nil {
		return nil, err
	}
	return OK(meta).WithETag(meta.ETag).WithCacheControl(cacheControl), nil
}

// HandleReplaceGame handles PUT /apiv2/internal/games/{id}.
func (h *Handlers) HandleReplaceGame(ctx context.Context, req *Request) (*Response, error) {
	var body dto.ReplaceGameRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	entity, err := h.games.Replace(ctx, pathID(req, "id"), body, req.IfMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewGameResponse(entity)).WithETag(entity.Meta.ETag), nil
}

// HandleMergeGame handles PATCH /apiv2/internal/games/{id}.
func (h *Handlers) HandleMergeGame(ctx context.Context, req *Request) (*Response, error) {
	var body dto.MergeGameRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	entity, err := h.games.Merge(ctx, pathID(req, "id"), body, req.IfMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewGameResponse(entity)).WithETag(entity.Meta.ETag), nil
}

// HandleDeleteGame handles DELETE /apiv2/internal/games/{id}.
func (h *Handlers) HandleDeleteGame(ctx context.Context, req *Request) (*Response, error) {
	if err := h.games.Delete(ctx, pathID(req, "id"), req.IfMatch()); err != nil {
		return nil, err
	}
	return NoContent(), nil
}

// HandleAddRound handles POST /apiv2/internal/games/{id}/rounds. The
// response is the full updated game; Location points at it.
func (h *Handlers) HandleAddRound(ctx context.Context, req *Request) (*Response, error) {
	var body dto.RoundRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	entity, err := h.games.AddRound(ctx, req.Param("id"), body, req.IfMatch())
	if err != nil {
		return nil, err
	}
	return Created(dto.NewGameResponse(entity)).
		WithLocation(gamesPath + "/" + entity.ID()).
		WithETag(entity.Meta.ETag), nil
}

// HandleAddMove handles POST /apiv2/internal/games/{gameId}/rounds/{roundId}/moves.
func (h *Handlers) HandleAddMove(ctx context.Context, req *Request) (*Response, error) {
	var body dto.MoveRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	entity, err := h.games.AddMove(ctx, req.Param("gameId"), req.Param("roundId"), body, req.IfMatch())
	if err != nil {
		return nil, err
	}
	return Created(dto.NewGameResponse(entity)).
		WithLocation(gamesPath + "/" + entity.ID()).
		WithETag(entity.Meta.ETag), nil
}

// HandleFinishRound handles PATCH /apiv2/internal/games/{gameId}/rounds/{roundId}/finish.
func (h *Handlers) HandleFinishRound(ctx context.Context, req *Request) (*Response, error) {
	entity, err := h.games.FinishRound(ctx, req.Param("gameId"), req.Param("roundId"), req.IfMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewGameResponse(entity)).WithETag(entity.Meta.ETag), nil
}

// HandleFinishGame handles PATCH /apiv2/internal/games/{id}/finish.
func (h *Handlers) HandleFinishGame(ctx context.Context, req *Request) (*Response, error) {
	entity, err := h.games.Finish(ctx, req.Param("id"), req.IfMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewGameResponse(entity)).WithETag(entity.Meta.ETag), nil
}
