package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/narration-leads/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "archive")
		store, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		assert.NotNil(t, store)
		assert.DirExists(t, dir)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsAFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	t.Run("WritesNestedObject", func(t *testing.T) {
		uri, err := store.PutObject(context.Background(), "leads/2024/05/01/abc.json", "application/json", strings.NewReader(`{"id":"abc"}`))
		require.NoError(t, err)
		want := filepath.Join(dir, "leads", "2024", "05", "01", "abc.json")
		assert.Equal(t, "file://"+want, uri)
		body, err := os.ReadFile(want)
		require.NoError(t, err)
		assert.Equal(t, `{"id":"abc"}`, string(body))
	})

	t.Run("WriteOnce", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "once.json", "", strings.NewReader("1"))
		require.NoError(t, err)
		_, err = store.PutObject(context.Background(), "once.json", "", strings.NewReader("2"))
		assert.Error(t, err)
	})

	t.Run("RejectsTraversal", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "../escape.json", "", strings.NewReader("x"))
		assert.ErrorContains(t, err, "path traversal")
	})

	t.Run("RejectsEmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "", "", strings.NewReader("x"))
		assert.Error(t, err)
	})
}
