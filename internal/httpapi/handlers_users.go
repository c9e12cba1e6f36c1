package httpapi

import (
	"context"

	"github.com/parlorgames/parlor/internal/dto"
)

// HandleListUsers handles GET /apiv2/internal/users. The page carries ids
// only; clients fetch full entities by id.
func (h *Handlers) HandleListUsers(ctx context.Context, req *Request) (*Response, error) {
	q, err := listQuery(req)
	if err != nil {
		return nil, err
	}
	page, err := h.users.List(ctx, q)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(page.Items))
	for i, e := range page.Items {
		ids[i] = e.Profile.ID
	}
	return OK(dto.NewNameListResponse(ids, page.NextCursor)).WithCacheControl(cacheControl), nil
}

// HandleCreateUser handles POST /apiv2/internal/users.
func (h *Handlers) HandleCreateUser(ctx context.Context, req *Request) (*Response, error) {
	var body dto.CreateUserRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	entity, err := h.users.Create(ctx, body)
	if err != nil {
		return nil, err
	}
	return Created(dto.NewUserResponse(entity)).
		WithLocation(usersPath + "/" + entity.Profile.ID).
		WithETag(entity.Meta.ETag), nil
}

// HandleGetUser handles GET /apiv2/internal/users/{id}.
func (h *Handlers) HandleGetUser(ctx context.Context, req *Request) (*Response, error) {
	entity, err := h.users.Get(ctx, pathID(req, "id"), req.IfNoneMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewUserResponse(entity)).
		WithETag(entity.Meta.ETag).
		WithCacheControl(cacheControl), nil
}

// HandleUserMeta handles GET /apiv2/internal/users/{id}/meta.
func (h *Handlers) HandleUserMeta(ctx context.Context, req *Request) (*Response, error) {
	meta, err := h.users.Metadata(ctx, pathID(req, "id"))
	if err != nil {
		return nil, err
	}
	return OK(meta).WithETag(meta.ETag).WithCacheControl(cacheControl), nil
}

// HandleReplaceUser handles PUT /apiv2/internal/users/{id}.
func (h *Handlers) HandleReplaceUser(ctx context.Context, req *Request) (*Response, error) {
	var body dto.ReplaceUserRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	entity, err := h.users.Replace(ctx, pathID(req, "id"), body, req.IfMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewUserResponse(entity)).WithETag(entity.Meta.ETag), nil
}

// HandleMergeUser handles PATCH /apiv2/internal/users/{id}.
func (h *Handlers) HandleMergeUser(ctx context.Context, req *Request) (*Response, error) {
	var body dto.MergeUserRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	entity, err := h.users.Merge(ctx, pathID(req, "id"), body, req.IfMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewUserResponse(entity)).WithETag(entity.Meta.ETag), nil
}

// HandleDeleteUser handles DELETE /apiv2/internal/users/{id}.
func (h *Handlers) HandleDeleteUser(ctx context.Context, req *Request) (*Response, error) {
	if err := h.users.Delete(ctx, pathID(req, "id"), req.IfMatch()); err != nil {
		return nil, err
	}
	return NoContent(), nil
}
