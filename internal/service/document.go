package service

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/domain"
	"github.com/parlorgames/parlor/internal/dto"
)

// DocumentService orchestrates generic JSON document operations.
type DocumentService struct {
	repo           domain.DocumentRepository
	requireIfMatch bool
	ops            metric.Int64Counter
}

// NewDocumentService creates a DocumentService. When requireIfMatch is set,
// replace and merge requests without If-Match fail with PreconditionRequired.
func NewDocumentService(repo domain.DocumentRepository, requireIfMatch bool) *DocumentService {
	return &DocumentService{
		repo:           repo,
		requireIfMatch: requireIfMatch,
		ops:            opsCounter("documents"),
	}
}

// Create stores a new document, failing with Conflict if the id is taken.
func (s *DocumentService) Create(ctx context.Context, req dto.CreateDocumentRequest) (domain.Document, error) {
	doc, err := req.ToDocument()
	if err != nil {
		return domain.Document{}, err
	}
	saved, err := s.repo.Save(ctx, doc, domain.SaveOptions{IfNoneMatch: "*"})
	if err != nil {
		return domain.Document{}, err
	}
	record(ctx, s.ops, "create")
	return saved, nil
}

// Get loads a document. A matching ifNoneMatch short-circuits with
// NotModified.
func (s *DocumentService) Get(ctx context.Context, id, ifNoneMatch string) (domain.Document, error) {
	doc, err := s.repo.FindByID(ctx, id, domain.FindOptions{IfNoneMatch: ifNoneMatch})
	if err != nil {
		return domain.Document{}, err
	}
	if doc == nil {
		return domain.Document{}, apperr.NotFound("document", id)
	}
	record(ctx, s.ops, "get")
	return *doc, nil
}

// Replace swaps the document's data wholesale.
func (s *DocumentService) Replace(ctx context.Context, id string, req dto.ReplaceDocumentRequest, ifMatch string) (domain.Document, error) {
	if err := requirePrecondition(s.requireIfMatch, ifMatch); err != nil {
		return domain.Document{}, err
	}
	next, err := req.ToDocument(id)
	if err != nil {
		return domain.Document{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	next.Meta = current.Meta

	saved, err := s.repo.Save(ctx, next, domain.SaveOptions{IfMatch: updateCondition(ifMatch, current.Meta.ETag)})
	if err != nil {
		return domain.Document{}, err
	}
	record(ctx, s.ops, "replace")
	return saved, nil
}

// Merge overlays the provided top-level keys onto the stored document.
func (s *DocumentService) Merge(ctx context.Context, id string, req dto.MergeDocumentRequest, ifMatch string) (domain.Document, error) {
	if err := requirePrecondition(s.requireIfMatch, ifMatch); err != nil {
		return domain.Document{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	next, err := req.Apply(current)
	if err != nil {
		return domain.Document{}, err
	}

	saved, err := s.repo.Save(ctx, next, domain.SaveOptions{IfMatch: updateCondition(ifMatch, current.Meta.ETag)})
	if err != nil {
		return domain.Document{}, err
	}
	record(ctx, s.ops, "merge")
	return saved, nil
}

// Delete removes a document, optionally guarded by ifMatch.
func (s *DocumentService) Delete(ctx context.Context, id, ifMatch string) error {
	if err := s.repo.Delete(ctx, id, domain.DeleteOptions{IfMatch: ifMatch}); err != nil {
		return err
	}
	record(ctx, s.ops, "delete")
	return nil
}

// List pages through documents under the kind prefix.
func (s *DocumentService) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Document], error) {
	page, err := s.repo.FindAll(ctx, q)
	if err != nil {
		return domain.Page[domain.Document]{}, err
	}
	record(ctx, s.ops, "list")
	return page, nil
}

// Metadata returns the document's etag, size and last-modified time.
func (s *DocumentService) Metadata(ctx context.Context, id string) (domain.Metadata, error) {
	meta, err := s.repo.GetMetadata(ctx, id)
	if err != nil {
		return domain.Metadata{}, err
	}
	record(ctx, s.ops, "metadata")
	return meta, nil
}

func (s *DocumentService) load(ctx context.Context, id string) (domain.Document, error) {
	current, err := s.repo.FindByID(ctx, id, domain.FindOptions{})
	if err != nil {
		return domain.Document{}, err
	}
	if current == nil {
		return domain.Document{}, apperr.NotFound("document", id)
	}
	return *current, nil
}
