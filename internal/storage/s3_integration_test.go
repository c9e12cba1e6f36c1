package storage_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/domain"
	"github.com/parlorgames/parlor/internal/storage"
	"github.com/parlorgames/parlor/internal/testutil"
)

const testBucket = "parlor-test"

// s3Client holds a shared client against the MinIO container for all tests
// in this package.
var s3Client *s3.Client

func TestMain(m *testing.M) {
	ctx := context.Background()
	tc := testutil.MustStartMinIO()

	client, err := tc.NewS3Client(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3 client: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}
	if err := tc.CreateBucket(ctx, client, testBucket); err != nil {
		fmt.Fprintf(os.Stderr, "create bucket: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}
	s3Client = client

	code := m.Run()
	tc.Terminate()
	os.Exit(code)
}

func newS3Store(t *testing.T) *storage.S3Store {
	t.Helper()
	return storage.NewS3Store(s3Client, testBucket)
}

func TestS3Store_ConditionalPut(t *testing.T) {
	ctx := context.Background()
	store := newS3Store(t)

	info, err := store.Put(ctx, "cond/k.json", []byte("one"), storage.PutOptions{IfNoneMatch: "*", ContentType: "application/json"})
	require.NoError(t, err)
	require.NotEmpty(t, info.ETag)
	assert.NotContains(t, info.ETag, `"`, "store etags are unquoted")

	_, err = store.Put(ctx, "cond/k.json", []byte("two"), storage.PutOptions{IfNoneMatch: "*"})
	assert.ErrorIs(t, err, storage.ErrPreconditionFailed)

	_, err = store.Put(ctx, "cond/k.json", []byte("two"), storage.PutOptions{IfMatch: "d41d8cd98f00b204e9800998ecf8427e"})
	assert.ErrorIs(t, err, storage.ErrPreconditionFailed)

	next, err := store.Put(ctx, "cond/k.json", []byte("two"), storage.PutOptions{IfMatch: info.ETag})
	require.NoError(t, err)
	assert.NotEqual(t, info.ETag, next.ETag)
}

func TestS3Store_GetHeadDeleteList(t *testing.T) {
	ctx := context.Background()
	store := newS3Store(t)

	_, err := store.Get(ctx, "rt/missing.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Head(ctx, "rt/missing.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	for _, k := range []string{"rt/a.json", "rt/b.json", "rt/c.json"} {
		_, err := store.Put(ctx, k, []byte(`{"k":"`+k+`"}`), storage.PutOptions{ContentType: "application/json"})
		require.NoError(t, err)
	}

	obj, err := store.Get(ctx, "rt/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"rt/a.json"}`, string(obj.Body))
	assert.EqualValues(t, len(obj.Body), obj.Info.Size)

	head, err := store.Head(ctx, "rt/a.json")
	require.NoError(t, err)
	assert.Equal(t, obj.Info.ETag, head.ETag)

	first, err := store.List(ctx, storage.ListOptions{Prefix: "rt/", MaxKeys: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"rt/a.json", "rt/b.json"}, first.Keys)
	require.NotEmpty(t, first.NextPageToken)

	second, err := store.List(ctx, storage.ListOptions{Prefix: "rt/", MaxKeys: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	assert.Equal(t, []string{"rt/c.json"}, second.Keys)
	assert.Empty(t, second.NextPageToken)

	require.NoError(t, store.Delete(ctx, "rt/a.json"))
	require.NoError(t, store.Delete(ctx, "rt/a.json"), "deleting an absent key is not an error")
	_, err = store.Get(ctx, "rt/a.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestS3Store_BacksRepositories(t *testing.T) {
	ctx := context.Background()
	store := newS3Store(t)
	repo := storage.NewUserRepository(store, "repo-json/")

	saved, err := repo.Save(ctx, mustUserEntity(t, "u1", "Alice", 7), domain.SaveOptions{IfNoneMatch: "*"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.Meta.ETag)

	_, err = repo.Save(ctx, mustUserEntity(t, "u1", "Bob", 8), domain.SaveOptions{IfNoneMatch: "*"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	found, err := repo.FindByID(ctx, "u1", domain.FindOptions{})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alice", found.Profile.Name)
	assert.Equal(t, saved.Meta.ETag, found.Meta.ETag)

	_, err = repo.FindByID(ctx, "u1", domain.FindOptions{IfNoneMatch: saved.Meta.ETag})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotModified, apperr.KindOf(err))

	updated, err := repo.Save(ctx, mustUserEntity(t, "u1", "Alice Updated", 7), domain.SaveOptions{IfMatch: saved.Meta.ETag})
	require.NoError(t, err)
	assert.NotEqual(t, saved.Meta.ETag, updated.Meta.ETag)

	_, err = repo.Save(ctx, mustUserEntity(t, "u1", "Nope", 1), domain.SaveOptions{IfMatch: saved.Meta.ETag})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))

	require.NoError(t, repo.Delete(ctx, "u1", domain.DeleteOptions{IfMatch: updated.Meta.ETag}))
	gone, err := repo.FindByID(ctx, "u1", domain.FindOptions{})
	require.NoError(t, err)
	assert.Nil(t, gone)
}
