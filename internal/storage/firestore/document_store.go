// Package firestore stores lead documents in Cloud Firestore collections.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

// Stored document field names added next to the record body.
const (
	FieldSource     = "source"
	FieldKind       = "kind"
	FieldCreatedAt  = "createdAt"
	FieldEmailLower = "emailLower"
)

// Config selects the Firestore project and database.
type Config struct {
	ProjectID  string
	DatabaseID string
}

// documents is the slice of the Firestore client the store uses.
type documents interface {
	Create(ctx context.Context, collection string, data map[string]any) (string, time.Time, error)
	Exists(ctx context.Context, collection, field string, value any) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// DocumentStore appends lead documents to Firestore collections.
type DocumentStore struct {
	docs documents
}

// NewDocumentStore opens a Firestore client for cfg.
func NewDocumentStore(ctx context.Context, cfg Config, opts ...option.ClientOption) (*DocumentStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore.project_id is required")
	}
	database := cfg.DatabaseID
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, database, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client init: %w", err)
	}
	return &DocumentStore{docs: &clientDocuments{client: client}}, nil
}

func newWithDocuments(docs documents) *DocumentStore {
	return &DocumentStore{docs: docs}
}

// Append adds doc under an auto-generated id with a server timestamp.
func (s *DocumentStore) Append(ctx context.Context, doc lead.Document) (lead.Receipt, error) {
	data := make(map[string]any, len(doc.Fields)+4)
	for k, v := range doc.Fields {
		data[k] = v
	}
	data[FieldSource] = doc.Source
	data[FieldKind] = string(doc.Kind)
	data[FieldEmailLower] = strings.ToLower(doc.Email)
	data[FieldCreatedAt] = firestore.ServerTimestamp

	id, created, err := s.docs.Create(ctx, doc.Collection, data)
	if err != nil {
		return lead.Receipt{}, classify("create document", err)
	}
	return lead.Receipt{ID: id, CreatedAt: created.UTC()}, nil
}

// EmailExists queries the lower-cased email field.
func (s *DocumentStore) EmailExists(ctx context.Context, collection, email string) (bool, error) {
	found, err := s.docs.Exists(ctx, collection, FieldEmailLower, strings.ToLower(email))
	if err != nil {
		return false, classify("lookup email", err)
	}
	return found, nil
}

// Ready issues a minimal read.
func (s *DocumentStore) Ready(ctx context.Context) error {
	if err := s.docs.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Close releases the client.
func (s *DocumentStore) Close() error {
	if err := s.docs.Close(); err != nil {
		return fmt.Errorf("close firestore client: %w", err)
	}
	return nil
}

// classify maps transient gRPC statuses onto lead.ErrStorageUnavailable and
// everything else onto a *lead.WriteError carrying the status code name.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %v", lead.ErrStorageUnavailable, op, err)
	}
	switch code := status.Code(err); code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s: %v", lead.ErrStorageUnavailable, op, err)
	default:
		return &lead.WriteError{Code: code.String(), Err: fmt.Errorf("%s: %w", op, err)}
	}
}

type clientDocuments struct {
	client *firestore.Client
}

func (c *clientDocuments) Create(ctx context.Context, collection string, data map[string]any) (string, time.Time, error) {
	ref := c.client.Collection(collection).NewDoc()
	res, err := ref.Create(ctx, data)
	if err != nil {
		return "", time.Time{}, err //nolint:wrapcheck // classified by the caller
	}
	return ref.ID, res.UpdateTime, nil
}

func (c *clientDocuments) Exists(ctx context.Context, collection, field string, value any) (bool, error) {
	iter := c.client.Collection(collection).Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()
	_, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		return false, err //nolint:wrapcheck // classified by the caller
	}
	return true, nil
}

func (c *clientDocuments) Ping(ctx context.Context) error {
	iter := c.client.Collections(ctx)
	_, err := iter.Next()
	if err == nil || errors.Is(err, iterator.Done) {
		return nil
	}
	return err //nolint:wrapcheck // classified by the caller
}

func (c *clientDocuments) Close() error {
	return c.client.Close() //nolint:wrapcheck // wrapped by the caller
}
