// Package memory holds in-process stores for development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

// StoredDocument is one appended document plus the metadata the store
// assigned to it.
type StoredDocument struct {
	ID        string
	CreatedAt time.Time
	lead.Document
}

// DocumentStore keeps appended lead documents per collection.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string][]StoredDocument
	idGen       lead.IDGenerator
	clock       lead.Clock
}

// NewDocumentStore constructs a DocumentStore.
func NewDocumentStore(idGen lead.IDGenerator, clock lead.Clock) *DocumentStore {
	return &DocumentStore{
		collections: make(map[string][]StoredDocument),
		idGen:       idGen,
		clock:       clock,
	}
}

// Append stores doc with a fresh identifier and timestamp.
func (s *DocumentStore) Append(ctx context.Context, doc lead.Document) (lead.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return lead.Receipt{}, fmt.Errorf("%w: %v", lead.ErrStorageUnavailable, err)
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return lead.Receipt{}, fmt.Errorf("generate document id: %w", err)
	}
	stored := StoredDocument{ID: id, CreatedAt: s.clock.Now(), Document: doc}
	stored.Fields = copyFields(doc.Fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[doc.Collection] = append(s.collections[doc.Collection], stored)
	return lead.Receipt{ID: stored.ID, CreatedAt: stored.CreatedAt}, nil
}

// EmailExists reports whether collection holds a document for email.
func (s *DocumentStore) EmailExists(_ context.Context, collection, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.collections[collection] {
		if strings.EqualFold(doc.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// Ready always succeeds.
func (s *DocumentStore) Ready(context.Context) error { return nil }

// Close is a no-op.
func (s *DocumentStore) Close() error { return nil }

// Documents returns a copy of collection in append order.
func (s *DocumentStore) Documents(collection string) []StoredDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StoredDocument, len(s.collections[collection]))
	copy(out, s.collections[collection])
	return out
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
