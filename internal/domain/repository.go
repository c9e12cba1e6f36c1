package domain

import "context"

// FindOptions conditions a read.
type FindOptions struct {
	// IfNoneMatch, when set, makes the read conditional: equality with the
	// current etag yields a not-modified error instead of the entity.
	// Unquoted.
	IfNoneMatch string
}

// SaveOptions conditions a write. IfNoneMatch "*" demands that the object
// does not exist yet (create); IfMatch demands that the stored etag equals
// the given one (update). Both unquoted.
type SaveOptions struct {
	IfMatch     string
	IfNoneMatch string
}

// DeleteOptions conditions a delete.
type DeleteOptions struct {
	IfMatch string
}

// ListQuery bounds a listing. Prefix narrows within the kind's key space;
// Cursor is opaque and round-trips from a prior page's NextCursor. A zero
// Limit lets the store default apply.
type ListQuery struct {
	Prefix string
	Limit  int32
	Cursor string
}

// Page is one page of a listing. NextCursor is empty on the last page.
type Page[E any] struct {
	Items      []E
	NextCursor string
}

// DocumentRepository persists generic JSON documents. FindByID returns
// (nil, nil) on a clean miss; conditional failures surface as application
// errors (conflict, precondition failed, not modified).
type DocumentRepository interface {
	FindByID(ctx context.Context, id string, opts FindOptions) (*Document, error)
	Save(ctx context.Context, doc Document, opts SaveOptions) (Document, error)
	Delete(ctx context.Context, id string, opts DeleteOptions) error
	FindAll(ctx context.Context, q ListQuery) (Page[Document], error)
	GetMetadata(ctx context.Context, id string) (Metadata, error)
}

// UserRepository persists user entities under the users/ sub-prefix.
type UserRepository interface {
	FindByID(ctx context.Context, id string, opts FindOptions) (*UserEntity, error)
	Save(ctx context.Context, user UserEntity, opts SaveOptions) (UserEntity, error)
	Delete(ctx context.Context, id string, opts DeleteOptions) error
	FindAll(ctx context.Context, q ListQuery) (Page[UserEntity], error)
	GetMetadata(ctx context.Context, id string) (Metadata, error)
}

// GameRepository persists game entities under the games/ sub-prefix.
type GameRepository interface {
	FindByID(ctx context.Context, id string, opts FindOptions) (*GameEntity, error)
	Save(ctx context.Context, game GameEntity, opts SaveOptions) (GameEntity, error)
	Delete(ctx context.Context, id string, opts DeleteOptions) error
	FindAll(ctx context.Context, q ListQuery) (Page[GameEntity], error)
	GetMetadata(ctx context.Context, id string) (Metadata, error)
}
