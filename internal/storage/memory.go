package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process ObjectStore. It backs unit tests and the
// zero-config local setup; semantics mirror the S3 store, including
// conditional writes and keyset pagination.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	version int64
}

type memObject struct {
	body []byte
	info ObjectInfo
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

// computeETag derives an opaque version token from the body and a
// monotonically increasing write counter, so rewriting identical bytes
// still produces a fresh tag.
func computeETag(body []byte, version int64) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%x-%d", sum[:8], version)
}

// Get returns the object at key or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return Object{}, ErrNotFound
	}
	body := make([]byte, len(obj.body))
	copy(body, obj.body)
	return Object{Body: body, Info: obj.info}, nil
}

// Put stores body at key, honoring the conditional options atomically.
func (s *MemoryStore) Put(_ context.Context, key string, body []byte, opts PutOptions) (ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.objects[key]
	if opts.IfNoneMatch == "*" && exists {
		return ObjectInfo{}, ErrPreconditionFailed
	}
	if opts.IfMatch != "" {
		if !exists {
			return ObjectInfo{}, ErrNotFound
		}
		if current.info.ETag != opts.IfMatch {
			return ObjectInfo{}, ErrPreconditionFailed
		}
	}

	s.version++
	stored := make([]byte, len(body))
	copy(stored, body)
	info := ObjectInfo{
		Key:          key,
		ETag:         computeETag(body, s.version),
		Size:         int64(len(body)),
		LastModified: time.Now().UTC(),
	}
	s.objects[key] = memObject{body: stored, info: info}
	return info, nil
}

// Delete removes the object at key. Deleting an absent key is not an error,
// matching S3.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Head returns metadata for the object at key or ErrNotFound.
func (s *MemoryStore) Head(_ context.Context, key string) (ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return ObjectInfo{}, ErrNotFound
	}
	return obj.info, nil
}

// List returns keys under the prefix in lexicographic order. The page token
// is the last key of the previous page.
func (s *MemoryStore) List(_ context.Context, opts ListOptions) (ListResult, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, opts.Prefix) && k > opts.PageToken {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()
	sort.Strings(keys)

	max := opts.MaxKeys
	if max <= 0 {
		max = defaultPageSize
	}
	res := ListResult{}
	if int32(len(keys)) > max {
		res.Keys = keys[:max]
		res.NextPageToken = keys[max-1]
	} else {
		res.Keys = keys
	}
	return res, nil
}
