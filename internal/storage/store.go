// Package storage implements the object-store-backed repositories. A narrow
// ObjectStore interface is the only I/O surface; S3, SQLite, and in-memory
// implementations sit behind it, and a generic repository core maps store
// signals to the application error taxonomy.
package storage

import (
	"context"
	"time"
)

// defaultPageSize applies when a listing does not bound its page.
const defaultPageSize int32 = 1000

// ObjectInfo is store metadata for a single object. ETag is unquoted.
type ObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	LastModified time.Time
}

// Object is a fetched object.
type Object struct {
	Body []byte
	Info ObjectInfo
}

// PutOptions conditions a write. IfNoneMatch supports only "*" (create if
// absent); IfMatch carries the expected etag, unquoted. Empty fields mean
// unconditional.
type PutOptions struct {
	IfMatch     string
	IfNoneMatch string
	ContentType string
}

// ListOptions bounds a key listing. PageToken is the store's native
// continuation token from a previous ListResult.
type ListOptions struct {
	Prefix    string
	MaxKeys   int32
	PageToken string
}

// ListResult is one page of keys in lexicographic order. NextPageToken is
// empty on the final page.
type ListResult struct {
	Keys          []string
	NextPageToken string
}

// ObjectStore is the narrow object-store surface the repositories depend
// on. Implementations return the package sentinels for misses and failed
// preconditions and wrap everything else.
type ObjectStore interface {
	Get(ctx context.Context, key string) (Object, error)
	Put(ctx context.Context, key string, body []byte, opts PutOptions) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Head(ctx context.Context, key string) (ObjectInfo, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
}
