package httpapi

import (
	"context"

	"github.com/parlorgames/parlor/internal/dto"
)

// HandleListDocuments handles GET /apiv2/internal/files.
func (h *Handlers) HandleListDocuments(ctx context.Context, req *Request) (*Response, error) {
	q, err := listQuery(req)
	if err != nil {
		return nil, err
	}
	page, err := h.documents.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return OK(dto.NewDocumentListResponse(page)).WithCacheControl(cacheControl), nil
}

// HandleCreateDocument handles POST /apiv2/internal/files.
func (h *Handlers) HandleCreateDocument(ctx context.Context, req *Request) (*Response, error) {
	var body dto.CreateDocumentRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	doc, err := h.documents.Create(ctx, body)
	if err != nil {
		return nil, err
	}
	return Created(dto.NewDocumentResponse(doc)).
		WithLocation(filesPath + "/" + doc.ID).
		WithETag(doc.Meta.ETag), nil
}

// HandleGetDocument handles GET /apiv2/internal/files/{id}.
func (h *Handlers) HandleGetDocument(ctx context.Context, req *Request) (*Response, error) {
	doc, err := h.documents.Get(ctx, pathID(req, "id"), req.IfNoneMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewDocumentResponse(doc)).
		WithETag(doc.Meta.ETag).
		WithCacheControl(cacheControl), nil
}

// HandleDocumentMeta handles GET /apiv2/internal/files/{id}/meta.
func (h *Handlers) HandleDocumentMeta(ctx context.Context, req *Request) (*Response, error) {
	meta, err := h.documents.Metadata(ctx, pathID(req, "id"))
	if err != nil {
		return nil, err
	}
	return OK(meta).WithETag(meta.ETag).WithCacheControl(cacheControl), nil
}

// HandleReplaceDocument handles PUT /apiv2/internal/files/{id}.
func (h *Handlers) HandleReplaceDocument(ctx context.Context, req *Request) (*Response, error) {
	var body dto.ReplaceDocumentRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	doc, err := h.documents.Replace(ctx, pathID(req, "id"), body, req.IfMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewDocumentResponse(doc)).WithETag(doc.Meta.ETag), nil
}

// HandleMergeDocument handles PATCH /apiv2/internal/files/{id}.
func (h *Handlers) HandleMergeDocument(ctx context.Context, req *Request) (*Response, error) {
	var body dto.MergeDocumentRequest
	if err := dto.Decode(req.Body, &body); err != nil {
		return nil, err
	}
	doc, err := h.documents.Merge(ctx, pathID(req, "id"), body, req.IfMatch())
	if err != nil {
		return nil, err
	}
	return OK(dto.NewDocumentResponse(doc)).WithETag(doc.Meta.ETag), nil
}

// HandleDeleteDocument handles DELETE /apiv2/internal/files/{id}.
func (h *Handlers) HandleDeleteDocument(ctx context.Context, req *Request) (*Response, error) {
	if err := h.documents.Delete(ctx, pathID(req, "id"), req.IfMatch()); err != nil {
		return nil, err
	}
	return NoContent(), nil
}
