package lead

import (
	"context"
	"time"
)

// Store appends lead documents to a named collection. Implementations assign
// the identifier and creation timestamp and never update or delete.
type Store interface {
	// Append writes doc as a new document. Availability problems wrap
	// ErrStorageUnavailable; other rejections are *WriteError.
	Append(ctx context.Context, doc Document) (Receipt, error)
	// EmailExists reports whether collection already holds a document for
	// email, compared case-insensitively.
	EmailExists(ctx context.Context, collection, email string) (bool, error)
	// Ready reports whether the store can currently accept writes.
	Ready(ctx context.Context) error
	Close() error
}

// Notifier tells the operator mailbox about a new lead.
type Notifier interface {
	Notify(ctx context.Context, rec Record) error
}

// CRM forwards a lead to the external customer-relationship service.
type CRM interface {
	Sync(ctx context.Context, rec Record) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces document identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
