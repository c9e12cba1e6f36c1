package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/domain"
	"github.com/parlorgames/parlor/internal/telemetry"
)

// jsonContentType is the content type of every persisted object.
const jsonContentType = "application/json"

var tracer = telemetry.Tracer("parlor/storage")

// entityRepo is the repository core shared by all kinds. A kind is defined
// by its key prefix and by how entities convert to and from stored bytes.
type entityRepo[E any] struct {
	store    ObjectStore
	prefix   string
	kind     string
	decode   func(id string, body []byte, meta domain.Metadata) (E, error)
	encode   func(e E) ([]byte, error)
	id       func(e E) string
	withMeta func(e E, meta domain.Metadata) E
}

// key builds the object key for id: <prefix><urlencoded-id>.json. The
// identifier rules already guarantee url-safety; encoding is applied
// defensively.
func (r *entityRepo[E]) key(id string) string {
	return r.prefix + url.PathEscape(id) + ".json"
}

// idFromKey recovers an id from a listed key. Keys of other kinds nested
// under the same prefix (extra path segments) are rejected.
func (r *entityRepo[E]) idFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, r.prefix)
	if !ok {
		return "", false
	}
	encoded, ok := strings.CutSuffix(rest, ".json")
	if !ok || encoded == "" || strings.Contains(encoded, "/") {
		return "", false
	}
	id, err := url.PathUnescape(encoded)
	if err != nil {
		return "", false
	}
	return id, true
}

func (r *entityRepo[E]) span(ctx context.Context, op, id string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "storage."+op)
	span.SetAttributes(
		attribute.String("parlor.kind", r.kind),
		attribute.String("parlor.id", id),
	)
	return ctx, span
}

func metadataFromInfo(info ObjectInfo) domain.Metadata {
	return domain.Metadata{
		ETag:         info.ETag,
		Size:         info.Size,
		LastModified: info.LastModified.UTC().Format(time.RFC3339),
	}
}

func (r *entityRepo[E]) findByID(ctx context.Context, id string, opts domain.FindOptions) (*E, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return nil, err
	}
	ctx, span := r.span(ctx, "get", id)
	defer span.End()

	obj, err := r.store.Get(ctx, r.key(id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("storage: get %s %s", r.kind, id), err)
	}
	if opts.IfNoneMatch != "" && opts.IfNoneMatch == obj.Info.ETag {
		return nil, apperr.NotModified(obj.Info.ETag)
	}

	e, err := r.decode(id, obj.Body, metadataFromInfo(obj.Info))
	if err != nil {
		// A payload that no longer parses is a stored-data problem, not a
		// client one.
		return nil, apperr.Internal(fmt.Sprintf("storage: decode %s %s", r.kind, id), err)
	}
	return &e, nil
}

func (r *entityRepo[E]) save(ctx context.Context, e E, opts domain.SaveOptions) (E, error) {
	var zero E
	id := r.id(e)
	if err := domain.ValidateID("id", id); err != nil {
		return zero, err
	}
	ctx, span := r.span(ctx, "put", id)
	defer span.End()
	key := r.key(id)

	// Probe ahead of the write so most losers fail early with a precise
	// error; the conditional headers on the write itself close the race.
	if opts.IfNoneMatch == "*" {
		_, err := r.store.Head(ctx, key)
		if err == nil {
			return zero, apperr.Conflict(fmt.Sprintf("%s %q already exists", r.kind, id))
		}
		if !errors.Is(err, ErrNotFound) {
			return zero, apperr.Internal(fmt.Sprintf("storage: probe %s %s", r.kind, id), err)
		}
	}
	if opts.IfMatch != "" {
		info, err := r.store.Head(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return zero, apperr.NotFound(r.kind, id)
		}
		if err != nil {
			return zero, apperr.Internal(fmt.Sprintf("storage: probe %s %s", r.kind, id), err)
		}
		if info.ETag != opts.IfMatch {
			return zero, apperr.PreconditionFailed(fmt.Sprintf("etag mismatch for %s %q", r.kind, id))
		}
	}

	body, err := r.encode(e)
	if err != nil {
		return zero, apperr.Internal(fmt.Sprintf("storage: encode %s %s", r.kind, id), err)
	}
	info, err := r.store.Put(ctx, key, body, PutOptions{
		IfMatch:     opts.IfMatch,
		IfNoneMatch: opts.IfNoneMatch,
		ContentType: jsonContentType,
	})
	switch {
	case errors.Is(err, ErrPreconditionFailed) && opts.IfNoneMatch == "*":
		return zero, apperr.Conflict(fmt.Sprintf("%s %q already exists", r.kind, id))
	case errors.Is(err, ErrPreconditionFailed):
		return zero, apperr.PreconditionFailed(fmt.Sprintf("etag mismatch for %s %q", r.kind, id))
	case errors.Is(err, ErrNotFound):
		return zero, apperr.NotFound(r.kind, id)
	case err != nil:
		return zero, apperr.Internal(fmt.Sprintf("storage: put %s %s", r.kind, id), err)
	}
	return r.withMeta(e, metadataFromInfo(info)), nil
}

func (r *entityRepo[E]) delete(ctx context.Context, id string, opts domain.DeleteOptions) error {
	if err := domain.ValidateID("id", id); err != nil {
		return err
	}
	ctx, span := r.span(ctx, "delete", id)
	defer span.End()
	key := r.key(id)

	info, err := r.store.Head(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(r.kind, id)
	}
	if err != nil {
		return apperr.Internal(fmt.Sprintf("storage: probe %s %s", r.kind, id), err)
	}
	if opts.IfMatch != "" && info.ETag != opts.IfMatch {
		return apperr.PreconditionFailed(fmt.Sprintf("etag mismatch for %s %q", r.kind, id))
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return apperr.Internal(fmt.Sprintf("storage: delete %s %s", r.kind, id), err)
	}
	return nil
}

func (r *entityRepo[E]) findAll(ctx context.Context, q domain.ListQuery) (domain.Page[E], error) {
	ctx, span := r.span(ctx, "list", q.Prefix)
	defer span.End()

	token, err := decodeCursor(q.Cursor)
	if err != nil {
		return domain.Page[E]{}, apperr.Validation("cursor", "cursor is malformed")
	}
	res, err := r.store.List(ctx, ListOptions{
		Prefix:    r.prefix + q.Prefix,
		MaxKeys:   q.Limit,
		PageToken: token,
	})
	if errors.Is(err, ErrBadCursor) {
		return domain.Page[E]{}, apperr.Validation("cursor", "cursor is malformed")
	}
	if err != nil {
		return domain.Page[E]{}, apperr.Internal(fmt.Sprintf("storage: list %s", r.kind), err)
	}

	page := domain.Page[E]{
		Items:      make([]E, 0, len(res.Keys)),
		NextCursor: encodeCursor(res.NextPageToken),
	}
	for _, key := range res.Keys {
		id, ok := r.idFromKey(key)
		if !ok {
			continue
		}
		obj, err := r.store.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			// Deleted between list and get; skip rather than fail the page.
			continue
		}
		if err != nil {
			return domain.Page[E]{}, apperr.Internal(fmt.Sprintf("storage: get %s %s", r.kind, id), err)
		}
		e, err := r.decode(id, obj.Body, metadataFromInfo(obj.Info))
		if err != nil {
			return domain.Page[E]{}, apperr.Internal(fmt.Sprintf("storage: decode %s %s", r.kind, id), err)
		}
		page.Items = append(page.Items, e)
	}
	return page, nil
}

func (r *entityRepo[E]) getMetadata(ctx context.Context, id string) (domain.Metadata, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return domain.Metadata{}, err
	}
	ctx, span := r.span(ctx, "head", id)
	defer span.End()

	info, err := r.store.Head(ctx, r.key(id))
	if errors.Is(err, ErrNotFound) {
		return domain.Metadata{}, apperr.NotFound(r.kind, id)
	}
	if err != nil {
		return domain.Metadata{}, apperr.Internal(fmt.Sprintf("storage: head %s %s", r.kind, id), err)
	}
	return metadataFromInfo(info), nil
}

// DocumentRepo is the object-store-backed domain.DocumentRepository.
// Documents live directly under the configured prefix.
type DocumentRepo struct {
	core entityRepo[domain.Document]
}

// NewDocumentRepository builds the document repository rooted at prefix.
func NewDocumentRepository(store ObjectStore, prefix string) *DocumentRepo {
	return &DocumentRepo{core: entityRepo[domain.Document]{
		store:  store,
		prefix: prefix,
		kind:   "document",
		decode: func(id string, body []byte, meta domain.Metadata) (domain.Document, error) {
			d, err := domain.NewDocument(id, body)
			if err != nil {
				return domain.Document{}, err
			}
			d.Meta = meta
			return d, nil
		},
		encode:   func(d domain.Document) ([]byte, error) { return d.Data, nil },
		id:       func(d domain.Document) string { return d.ID },
		withMeta: func(d domain.Document, meta domain.Metadata) domain.Document { d.Meta = meta; return d },
	}}
}

func (r *DocumentRepo) FindByID(ctx context.Context, id string, opts domain.FindOptions) (*domain.Document, error) {
	return r.core.findByID(ctx, id, opts)
}

func (r *DocumentRepo) Save(ctx context.Context, doc domain.Document, opts domain.SaveOptions) (domain.Document, error) {
	return r.core.save(ctx, doc, opts)
}

func (r *DocumentRepo) Delete(ctx context.Context, id string, opts domain.DeleteOptions) error {
	return r.core.delete(ctx, id, opts)
}

func (r *DocumentRepo) FindAll(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Document], error) {
	return r.core.findAll(ctx, q)
}

func (r *DocumentRepo) GetMetadata(ctx context.Context, id string) (domain.Metadata, error) {
	return r.core.getMetadata(ctx, id)
}

// UserRepo is the object-store-backed domain.UserRepository. Users live
// under <prefix>users/.
type UserRepo struct {
	core entityRepo[domain.UserEntity]
}

// NewUserRepository builds the user repository rooted at prefix.
func NewUserRepository(store ObjectStore, prefix string) *UserRepo {
	return &UserRepo{core: entityRepo[domain.UserEntity]{
		store:    store,
		prefix:   prefix + "users/",
		kind:     "user",
		decode:   domain.ParseUserEntity,
		encode:   domain.UserEntity.Payload,
		id:       domain.UserEntity.ID,
		withMeta: domain.UserEntity.WithMeta,
	}}
}

func (r *UserRepo) FindByID(ctx context.Context, id string, opts domain.FindOptions) (*domain.UserEntity, error) {
	return r.core.findByID(ctx, id, opts)
}

func (r *UserRepo) Save(ctx context.Context, user domain.UserEntity, opts domain.SaveOptions) (domain.UserEntity, error) {
	return r.core.save(ctx, user, opts)
}

func (r *UserRepo) Delete(ctx context.Context, id string, opts domain.DeleteOptions) error {
	return r.core.delete(ctx, id, opts)
}

func (r *UserRepo) FindAll(ctx context.Context, q domain.ListQuery) (domain.Page[domain.UserEntity], error) {
	return r.core.findAll(ctx, q)
}

func (r *UserRepo) GetMetadata(ctx context.Context, id string) (domain.Metadata, error) {
	return r.core.getMetadata(ctx, id)
}

// GameRepo is the object-store-backed domain.GameRepository. Games live
// under <prefix>games/.
type GameRepo struct {
	core entityRepo[domain.GameEntity]
}

// NewGameRepository builds the game repository rooted at prefix.
func NewGameRepository(store ObjectStore, prefix string) *GameRepo {
	return &GameRepo{core: entityRepo[domain.GameEntity]{
		store:    store,
		prefix:   prefix + "games/",
		kind:     "game",
		decode:   domain.ParseGameEntity,
		encode:   domain.GameEntity.Payload,
		id:       domain.GameEntity.ID,
		withMeta: domain.GameEntity.WithMeta,
	}}
}

func (r *GameRepo) FindByID(ctx context.Context, id string, opts domain.FindOptions) (*domain.GameEntity, error) {
	return r.core.findByID(ctx, id, opts)
}

func (r *GameRepo) Save(ctx context.Context, game domain.GameEntity, opts domain.SaveOptions) (domain.GameEntity, error) {
	return r.core.save(ctx, game, opts)
}

func (r *GameRepo) Delete(ctx context.Context, id string, opts domain.DeleteOptions) error {
	return r.core.delete(ctx, id, opts)
}

func (r *GameRepo) FindAll(ctx context.Context, q domain.ListQuery) (domain.Page[domain.GameEntity], error) {
	return r.core.findAll(ctx, q)
}

func (r *GameRepo) GetMetadata(ctx context.Context, id string) (domain.Metadata, error) {
	return r.core.getMetadata(ctx, id)
}
