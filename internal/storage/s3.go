package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Store is the production ObjectStore over a single S3 bucket. Writes use
// S3's native conditional headers, so optimistic concurrency holds even
// across concurrent runtime instances.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store wraps an S3 client for the given bucket.
func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// unquoteETag strips the quotes S3 puts around entity tags.
func unquoteETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// quoteETag produces the quoted form S3 expects in conditional headers.
func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}

func isAPIError(err error, codes ...string) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	code := ae.ErrorCode()
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

// Get fetches the object at key.
func (s *S3Store) Get(ctx context.Context, key string) (Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) || isAPIError(err, "NoSuchKey") {
			return Object{}, ErrNotFound
		}
		return Object{}, fmt.Errorf("storage: get %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return Object{}, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return Object{
		Body: body,
		Info: ObjectInfo{
			Key:          key,
			ETag:         unquoteETag(aws.ToString(out.ETag)),
			Size:         aws.ToInt64(out.ContentLength),
			LastModified: aws.ToTime(out.LastModified),
		},
	}, nil
}

// Put writes body at key. Conditional failures map to the package
// sentinels; S3 reports a lost If-None-Match "*" as 412 and a concurrent
// conditional write as 409, both of which are precondition losses here.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, opts PutOptions) (ObjectInfo, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if opts.IfMatch != "" {
		in.IfMatch = aws.String(quoteETag(opts.IfMatch))
	}
	if opts.IfNoneMatch != "" {
		in.IfNoneMatch = aws.String(opts.IfNoneMatch)
	}

	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		switch {
		case isAPIError(err, "PreconditionFailed", "ConditionalRequestConflict"):
			return ObjectInfo{}, ErrPreconditionFailed
		case isAPIError(err, "NoSuchKey"):
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, fmt.Errorf("storage: put %s: %w", key, err)
	}
	return ObjectInfo{
		Key:          key,
		ETag:         unquoteETag(aws.ToString(out.ETag)),
		Size:         int64(len(body)),
		LastModified: time.Now().UTC(),
	}, nil
}

// Delete removes the object at key. S3 treats deleting an absent key as
// success, and so does this store.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Head probes metadata for the object at key.
func (s *S3Store) Head(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) || isAPIError(err, "NotFound", "NoSuchKey") {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, fmt.Errorf("storage: head %s: %w", key, err)
	}
	return ObjectInfo{
		Key:          key,
		ETag:         unquoteETag(aws.ToString(out.ETag)),
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// List returns one page of keys under the prefix using S3's native
// continuation tokens.
func (s *S3Store) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(opts.Prefix),
	}
	if opts.MaxKeys > 0 {
		in.MaxKeys = aws.Int32(opts.MaxKeys)
	}
	if opts.PageToken != "" {
		in.ContinuationToken = aws.String(opts.PageToken)
	}

	out, err := s.client.ListObjectsV2(ctx, in)
	if err != nil {
		if isAPIError(err, "InvalidArgument") {
			return ListResult{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
		}
		return ListResult{}, fmt.Errorf("storage: list %s: %w", opts.Prefix, err)
	}

	res := ListResult{Keys: make([]string, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		res.Keys = append(res.Keys, aws.ToString(obj.Key))
	}
	if aws.ToBool(out.IsTruncated) {
		res.NextPageToken = aws.ToString(out.NextContinuationToken)
	}
	return res, nil
}
