package firestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

type mockDocuments struct {
	mock.Mock
}

func (m *mockDocuments) Create(ctx context.Context, collection string, data map[string]any) (string, time.Time, error) {
	args := m.Called(ctx, collection, data)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *mockDocuments) Exists(ctx context.Context, collection, field string, value any) (bool, error) {
	args := m.Called(ctx, collection, field, value)
	return args.Bool(0), args.Error(1)
}

func (m *mockDocuments) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDocuments) Close() error {
	return m.Called().Error(0)
}

func estimateDoc() lead.Document {
	return lead.NewDocument(lead.CollectionEstimate, lead.EstimateLead{
		Email:           "Reader@Example.com",
		WordCount:       18000,
		Genre:           "romance",
		SelectedService: lead.TierFullCast,
	})
}

func TestAppendWritesServerTimestampAndSource(t *testing.T) {
	t.Parallel()

	docs := &mockDocuments{}
	created := time.Unix(1700000000, 0)
	docs.On("Create", mock.Anything, lead.CollectionEstimate, mock.MatchedBy(func(data map[string]any) bool {
		return data[FieldSource] == lead.SourceCostEstimator &&
			data[FieldCreatedAt] == firestore.ServerTimestamp &&
			data[FieldEmailLower] == "reader@example.com" &&
			data["estimatedCost"] == 300.0 &&
			data["wordCount"] == 18000
	})).Return("auto-id", created, nil)

	receipt, err := newWithDocuments(docs).Append(context.Background(), estimateDoc())
	require.NoError(t, err)
	require.Equal(t, "auto-id", receipt.ID)
	require.True(t, created.Equal(receipt.CreatedAt))
	docs.AssertExpectations(t)
}

func TestAppendClassifiesStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		err         error
		unavailable bool
		code        string
	}{
		{"unavailable", status.Error(codes.Unavailable, "backend down"), true, ""},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), true, ""},
		{"context", context.DeadlineExceeded, true, ""},
		{"permission", status.Error(codes.PermissionDenied, "rules"), false, "PermissionDenied"},
		{"invalid", status.Error(codes.InvalidArgument, "bad field"), false, "InvalidArgument"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			docs := &mockDocuments{}
			docs.On("Create", mock.Anything, mock.Anything, mock.Anything).Return("", time.Time{}, tc.err)

			_, err := newWithDocuments(docs).Append(context.Background(), estimateDoc())
			if tc.unavailable {
				require.ErrorIs(t, err, lead.ErrStorageUnavailable)
				return
			}
			var writeErr *lead.WriteError
			require.ErrorAs(t, err, &writeErr)
			require.Equal(t, tc.code, writeErr.Code)
		})
	}
}

func TestEmailExistsQueriesLowercase(t *testing.T) {
	t.Parallel()

	docs := &mockDocuments{}
	docs.On("Exists", mock.Anything, lead.CollectionContact, FieldEmailLower, "ada@example.com").Return(true, nil)

	found, err := newWithDocuments(docs).EmailExists(context.Background(), lead.CollectionContact, "ADA@example.com")
	require.NoError(t, err)
	require.True(t, found)
}

func TestReadyAndClose(t *testing.T) {
	t.Parallel()

	docs := &mockDocuments{}
	docs.On("Ping", mock.Anything).Return(status.Error(codes.Unavailable, "down")).Once()
	docs.On("Close").Return(errors.New("already closed"))

	store := newWithDocuments(docs)
	require.ErrorIs(t, store.Ready(context.Background()), lead.ErrStorageUnavailable)
	require.Error(t, store.Close())
}
