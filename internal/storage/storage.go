// Package storage holds the persistence contracts shared by the document
// and blob store implementations in its subpackages.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

// BlobStore writes opaque objects and returns a URI for them.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Unavailable is the store handed out when the configured backend could not
// be initialized. Every write fails with lead.ErrStorageUnavailable, so the
// pipeline reports the outage instead of the process refusing to start.
type Unavailable struct {
	Driver string
	Cause  error
}

// NewUnavailable records why driver could not be opened.
func NewUnavailable(driver string, cause error) *Unavailable {
	return &Unavailable{Driver: driver, Cause: cause}
}

func (u *Unavailable) err() error {
	return fmt.Errorf("%w: %s store not initialized: %v", lead.ErrStorageUnavailable, u.Driver, u.Cause)
}

// Append always fails.
func (u *Unavailable) Append(context.Context, lead.Document) (lead.Receipt, error) {
	return lead.Receipt{}, u.err()
}

// EmailExists always fails.
func (u *Unavailable) EmailExists(context.Context, string, string) (bool, error) {
	return false, u.err()
}

// Ready always fails.
func (u *Unavailable) Ready(context.Context) error {
	return u.err()
}

// Close is a no-op.
func (u *Unavailable) Close() error { return nil }
