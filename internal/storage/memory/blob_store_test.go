package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte(`{"id":"1"}`)
	uri, err := store.PutObject(context.Background(), "leads/2024/01/02/1.json", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "memory://leads/2024/01/02/1.json", uri)

	payload[0] = 'X'
	got, ok := store.Object("leads/2024/01/02/1.json")
	require.True(t, ok)
	require.Equal(t, `{"id":"1"}`, string(got))
	require.Equal(t, []string{"leads/2024/01/02/1.json"}, store.Paths())
}

func TestBlobStoreRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().PutObject(context.Background(), " ", "", bytes.NewReader(nil))
	require.Error(t, err)
}
