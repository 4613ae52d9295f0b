package gcs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	buf      bytes.Buffer
	closed   bool
	closeErr error
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestPutObjectWritesAndCloses(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	var gotBucket, gotObject, gotType string
	store, err := newWithWriter(func(_ context.Context, bucket, object, contentType string) objectWriter {
		gotBucket, gotObject, gotType = bucket, object, contentType
		return w
	}, Config{Bucket: "lead-archive"})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "leads/2024/01/01/x.json", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	require.Equal(t, "gs://lead-archive/leads/2024/01/01/x.json", uri)
	require.Equal(t, "lead-archive", gotBucket)
	require.Equal(t, "leads/2024/01/01/x.json", gotObject)
	require.Equal(t, "application/json", gotType)
	require.True(t, w.closed)
	require.Equal(t, `{}`, w.buf.String())
}

func TestPutObjectSurfacesCloseError(t *testing.T) {
	t.Parallel()

	store, err := newWithWriter(func(context.Context, string, string, string) objectWriter {
		return &fakeWriter{closeErr: errors.New("precondition failed")}
	}, Config{Bucket: "b"})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "a.json", "", strings.NewReader("x"))
	require.ErrorContains(t, err, "precondition failed")
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)
	_, err = newWithWriter(nil, Config{})
	require.Error(t, err)
}
