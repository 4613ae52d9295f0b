package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

type staticID string

func (s staticID) NewID() (string, error) { return string(s), nil }

func contactDoc() lead.Document {
	return lead.NewDocument(lead.CollectionContact, lead.ContactMessage{
		Name:    "Ada",
		Email:   "ada@example.com",
		Message: "Please narrate my memoir.",
	})
}

func newMockStore(t *testing.T) (*DocumentStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewDocumentStoreWithPool(mock, "lead_documents", staticID("0190-lead"))
	require.NoError(t, err)
	return store, mock
}

func TestAppendInsertsDocument(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	created := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("INSERT INTO lead_documents").
		WithArgs(
			"0190-lead",
			lead.CollectionContact,
			"contact",
			lead.SourceContactForm,
			"ada@example.com",
			[]byte(`{"email":"ada@example.com","message":"Please narrate my memoir.","name":"Ada"}`),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("0190-lead", created))

	receipt, err := store.Append(context.Background(), contactDoc())
	require.NoError(t, err)
	require.Equal(t, lead.Receipt{ID: "0190-lead", CreatedAt: created}, receipt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendClassifiesConstraintViolationAsWriteError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO lead_documents").
		WillReturnError(&pgconn.PgError{Code: "23514", Message: "check constraint"})

	_, err := store.Append(context.Background(), contactDoc())
	var writeErr *lead.WriteError
	require.ErrorAs(t, err, &writeErr)
	require.Equal(t, "23514", writeErr.Code)
	require.False(t, errors.Is(err, lead.ErrStorageUnavailable))
}

func TestAppendClassifiesConnectivityAsUnavailable(t *testing.T) {
	t.Parallel()

	for name, driverErr := range map[string]error{
		"admin shutdown": &pgconn.PgError{Code: "57P01"},
		"too many conns": &pgconn.PgError{Code: "53300"},
		"conn refused":   errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
		"deadline":       context.DeadlineExceeded,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, mock := newMockStore(t)
			mock.ExpectQuery("INSERT INTO lead_documents").WillReturnError(driverErr)

			_, err := store.Append(context.Background(), contactDoc())
			require.ErrorIs(t, err, lead.ErrStorageUnavailable)
		})
	}
}

func TestEmailExists(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(lead.CollectionEstimate, "Reader@Example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := store.EmailExists(context.Background(), lead.CollectionEstimate, "Reader@Example.com")
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAndReady(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS lead_documents").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectPing()

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Ready(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadyFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectPing().WillReturnError(errors.New("broken pipe"))

	require.ErrorIs(t, store.Ready(context.Background()), lead.ErrStorageUnavailable)
}

func TestNewDocumentStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewDocumentStoreWithPool(mock, "leads; DROP TABLE x", staticID("x"))
	require.Error(t, err)
	_, err = NewDocumentStoreWithPool(nil, "", staticID("x"))
	require.Error(t, err)
	store, err := NewDocumentStoreWithPool(mock, "", staticID("x"))
	require.NoError(t, err)
	require.Equal(t, defaultTable, store.table)
}
