package agiled

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/narration-leads/internal/crm"
	"github.com/JakeFAU/narration-leads/internal/lead"
)

func estimateLead() lead.EstimateLead {
	return lead.EstimateLead{
		Email:           "reader@example.com",
		WordCount:       90000,
		Genre:           "fantasy",
		SelectedService: lead.TierNarrationOnly,
	}
}

func TestSyncPostsContact(t *testing.T) {
	t.Parallel()

	var got crm.Contact
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/contacts", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		assert.Equal(t, "narration-design.agiled.app", r.Header.Get("Brand"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":7}}`))
	}))
	defer srv.Close()

	client, err := New(Config{APIURL: srv.URL + "/api/v1/", APIKey: "key-123", Brand: "narration-design.agiled.app"}, srv.Client(), 0)
	require.NoError(t, err)
	require.NoError(t, client.Sync(context.Background(), estimateLead()))

	assert.Equal(t, "reader@example.com", got.Email)
	assert.Equal(t, crm.TagsEstimate, got.Tags)
	assert.Len(t, got.CustomFields, 4)
}

func TestSyncReturnsDiagnosticOnRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("  {\"message\":\"The email has already been taken.\"}\n"))
	}))
	defer srv.Close()

	client, err := New(Config{APIURL: srv.URL, APIKey: "k", Brand: "b"}, srv.Client(), 0)
	require.NoError(t, err)

	err = client.Sync(context.Background(), estimateLead())
	var syncErr *crm.SyncError
	require.True(t, errors.As(err, &syncErr))
	require.Equal(t, http.StatusUnprocessableEntity, syncErr.Status)
	require.Equal(t, `{"message":"The email has already been taken."}`, syncErr.Diagnostic())
}

func TestSyncHonorsContextDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	client, err := New(Config{APIURL: srv.URL, APIKey: "k", Brand: "b"}, srv.Client(), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = client.Sync(ctx, estimateLead())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{APIURL: "https://api.example.com", Brand: "b"}, nil, time.Second)
	require.ErrorIs(t, err, lead.ErrConfigurationMissing)
}
