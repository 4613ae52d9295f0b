package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

func TestUnavailableFailsEveryCall(t *testing.T) {
	t.Parallel()

	var store lead.Store = NewUnavailable("postgres", errors.New("dial tcp: connection refused"))

	_, err := store.Append(context.Background(), lead.Document{Collection: "c"})
	require.ErrorIs(t, err, lead.ErrStorageUnavailable)
	require.Contains(t, err.Error(), "postgres")

	_, err = store.EmailExists(context.Background(), "c", "a@b.co")
	require.ErrorIs(t, err, lead.ErrStorageUnavailable)

	require.ErrorIs(t, store.Ready(context.Background()), lead.ErrStorageUnavailable)
	require.NoError(t, store.Close())
}
