package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crawllie/crawllie/internal/storage"
)

func TestPutGetExists(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put(ctx, "raw/a", storage.GzipJSON(), []byte("data")))
	got, err := s.Get(ctx, "raw/a")
	require.NoError(t, err)
	require.Equal(t, []byte("data"), got)

	ok, err := s.Exists(ctx, "raw/a")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestListReturnsSortedKeysUnderPrefix(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	for _, key := range []string{"raw/b", "raw/a", "processed/c"} {
		require.NoError(t, s.Put(ctx, key, storage.PutOptions{}, nil))
	}

	keys, err := s.List(ctx, "raw/")
	require.NoError(t, err)
	require.Equal(t, []string{"raw/a", "raw/b"}, keys)
}

func TestMultipartInvisibleUntilComplete(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	up, err := s.BeginUpload(ctx, "raw/obj", storage.GzipJSON())
	require.NoError(t, err)

	p1, err := up.UploadPart(ctx, 1, []byte("hello "))
	require.NoError(t, err)
	p2, err := up.UploadPart(ctx, 2, []byte("world"))
	require.NoError(t, err)

	ok, err := s.Exists(ctx, "raw/obj")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, up.Complete(ctx, []storage.Part{p1, p2}))
	got, err := s.Get(ctx, "raw/obj")
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), got)
}

func TestCompleteRejectsOutOfOrderParts(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	up, err := s.BeginUpload(ctx, "raw/obj", storage.PutOptions{})
	require.NoError(t, err)

	p1, err := up.UploadPart(ctx, 1, []byte("a"))
	require.NoError(t, err)
	p2, err := up.UploadPart(ctx, 2, []byte("b"))
	require.NoError(t, err)

	require.Error(t, up.Complete(ctx, []storage.Part{p2, p1}))
}

func TestAbortDiscardsParts(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	up, err := s.BeginUpload(ctx, "raw/obj", storage.PutOptions{})
	require.NoError(t, err)
	_, err = up.UploadPart(ctx, 1, []byte("a"))
	require.NoError(t, err)
	require.NoError(t, up.Abort(ctx))

	ok, err := s.Exists(ctx, "raw/obj")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInjectedPartFailure(t *testing.T) {
	t.Parallel()

	s := New()
	s.FailPartAfter = 2
	ctx := context.Background()
	up, err := s.BeginUpload(ctx, "raw/obj", storage.PutOptions{})
	require.NoError(t, err)

	_, err = up.UploadPart(ctx, 1, []byte("a"))
	require.NoError(t, err)
	_, err = up.UploadPart(ctx, 2, []byte("b"))
	require.Error(t, err)

	var serr *storage.Error
	require.ErrorAs(t, err, &serr)
}
