package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("doc-%d", s.n), nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestDocumentStoreAppendAssignsIDAndTimestamp(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	store := NewDocumentStore(&seqIDs{}, fixedClock{now: now})
	msg := lead.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "Hello there, narrator."}

	receipt, err := store.Append(context.Background(), lead.NewDocument(lead.CollectionContact, msg))
	require.NoError(t, err)
	require.Equal(t, "doc-1", receipt.ID)
	require.Equal(t, now, receipt.CreatedAt)

	docs := store.Documents(lead.CollectionContact)
	require.Len(t, docs, 1)
	require.Equal(t, lead.SourceContactForm, docs[0].Source)
	require.Equal(t, "Ada", docs[0].Fields["name"])
	require.Empty(t, store.Documents(lead.CollectionEstimate))
}

func TestDocumentStoreEmailExistsIgnoresCase(t *testing.T) {
	t.Parallel()

	store := NewDocumentStore(&seqIDs{}, fixedClock{now: time.Now()})
	est := lead.EstimateLead{Email: "Reader@Example.com", WordCount: 9000, Genre: "fantasy", SelectedService: lead.TierFullCast}
	_, err := store.Append(context.Background(), lead.NewDocument(lead.CollectionEstimate, est))
	require.NoError(t, err)

	found, err := store.EmailExists(context.Background(), lead.CollectionEstimate, "reader@example.COM")
	require.NoError(t, err)
	require.True(t, found)

	found, err = store.EmailExists(context.Background(), lead.CollectionContact, "reader@example.com")
	require.NoError(t, err)
	require.False(t, found, "collections are independent")
}

func TestDocumentStoreConcurrentAppends(t *testing.T) {
	t.Parallel()

	store := NewDocumentStore(&seqIDs{}, fixedClock{now: time.Now()})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := lead.ContactMessage{Name: "n", Email: fmt.Sprintf("v%d@example.com", i), Message: "0123456789"}
			_, err := store.Append(context.Background(), lead.NewDocument("c", msg))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, d := range store.Documents("c") {
		require.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
	}
	require.Len(t, seen, 50)
}

func TestDocumentStoreCanceledContext(t *testing.T) {
	t.Parallel()

	store := NewDocumentStore(&seqIDs{}, fixedClock{now: time.Now()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Append(ctx, lead.Document{Collection: "c"})
	require.ErrorIs(t, err, lead.ErrStorageUnavailable)
}
