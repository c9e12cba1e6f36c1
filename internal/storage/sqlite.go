package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite" // database/sql driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS objects (
	object_key    TEXT PRIMARY KEY,
	body          BLOB NOT NULL,
	etag          TEXT NOT NULL,
	size          INTEGER NOT NULL,
	last_modified TEXT NOT NULL,
	version       INTEGER NOT NULL
);`

// SQLiteStore is a single-file ObjectStore for local development. One table
// holds every object; conditional writes run inside immediate transactions
// so the check-then-write is atomic.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get fetches the object at key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Object, error) {
	var (
		body         []byte
		etag         string
		size         int64
		lastModified string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, etag, size, last_modified FROM objects WHERE object_key = ?`, key,
	).Scan(&body, &etag, &size, &lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return Object{}, ErrNotFound
	}
	if err != nil {
		return Object{}, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return Object{Body: body, Info: objectInfoRow(key, etag, size, lastModified)}, nil
}

// Put writes body at key, honoring the conditional options atomically.
func (s *SQLiteStore) Put(ctx context.Context, key string, body []byte, opts PutOptions) (ObjectInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: begin put %s: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		currentETag string
		version     int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT etag, version FROM objects WHERE object_key = ?`, key,
	).Scan(&currentETag, &version)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ObjectInfo{}, fmt.Errorf("storage: probe %s: %w", key, err)
	}

	if opts.IfNoneMatch == "*" && exists {
		return ObjectInfo{}, ErrPreconditionFailed
	}
	if opts.IfMatch != "" {
		if !exists {
			return ObjectInfo{}, ErrNotFound
		}
		if currentETag != opts.IfMatch {
			return ObjectInfo{}, ErrPreconditionFailed
		}
	}

	version++
	info := ObjectInfo{
		Key:          key,
		ETag:         computeETag(body, version),
		Size:         int64(len(body)),
		LastModified: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO objects (object_key, body, etag, size, last_modified, version)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(object_key) DO UPDATE SET
			body = excluded.body,
			etag = excluded.etag,
			size = excluded.size,
			last_modified = excluded.last_modified,
			version = excluded.version`,
		key, body, info.ETag, info.Size, info.LastModified.Format(time.RFC3339Nano), version,
	)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: put %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: commit put %s: %w", key, err)
	}
	return info, nil
}

// Delete removes the object at key. Deleting an absent key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE object_key = ?`, key); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Head probes metadata for the object at key.
func (s *SQLiteStore) Head(ctx context.Context, key string) (ObjectInfo, error) {
	var (
		etag         string
		size         int64
		lastModified string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT etag, size, last_modified FROM objects WHERE object_key = ?`, key,
	).Scan(&etag, &size, &lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return ObjectInfo{}, ErrNotFound
	}
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: head %s: %w", key, err)
	}
	return objectInfoRow(key, etag, size, lastModified), nil
}

// List returns one page of keys under the prefix, ordered by key. The page
// token is the last key of the previous page.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	max := opts.MaxKeys
	if max <= 0 {
		max = defaultPageSize
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT object_key FROM objects
		 WHERE substr(object_key, 1, ?) = ? AND object_key > ?
		 ORDER BY object_key
		 LIMIT ?`,
		utf8.RuneCountInString(opts.Prefix), opts.Prefix, opts.PageToken, max+1,
	)
	if err != nil {
		return ListResult{}, fmt.Errorf("storage: list %s: %w", opts.Prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0, max)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return ListResult{}, fmt.Errorf("storage: scan list row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("storage: list %s: %w", opts.Prefix, err)
	}

	res := ListResult{Keys: keys}
	if int32(len(keys)) > max {
		res.Keys = keys[:max]
		res.NextPageToken = keys[max-1]
	}
	return res, nil
}

func objectInfoRow(key, etag string, size int64, lastModified string) ObjectInfo {
	ts, err := time.Parse(time.RFC3339Nano, lastModified)
	if err != nil {
		ts = time.Time{}
	}
	return ObjectInfo{Key: key, ETag: etag, Size: size, LastModified: ts}
}
