// Package events announces captured leads to downstream consumers. Delivery
// is asynchronous and best-effort: a failing sink is logged and counted but
// never changes the response a visitor sees.
package events

import (
	"errors"
	"time"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

// TypeLeadCaptured is the only event type emitted today.
const TypeLeadCaptured = "lead.captured"

// Event describes one persisted submission.
type Event struct {
	Type       string       `json:"type"`
	ID         string       `json:"id"`
	Kind       lead.Kind    `json:"kind"`
	Collection string       `json:"collection"`
	Email      string       `json:"email"`
	CreatedAt  time.Time    `json:"created_at"`
	Outcome    lead.Outcome `json:"outcome"`
}

// LeadCaptured builds the event for a document that was appended to the store.
func LeadCaptured(doc lead.Document, receipt lead.Receipt, outcome lead.Outcome) Event {
	return Event{
		Type:       TypeLeadCaptured,
		ID:         receipt.ID,
		Kind:       doc.Kind,
		Collection: doc.Collection,
		Email:      doc.Email,
		CreatedAt:  receipt.CreatedAt.UTC(),
		Outcome:    outcome,
	}
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if e.ID == "" {
		return errors.New("event id is required")
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at is required")
	}
	return nil
}

// Attributes are the string metadata attached to published messages so
// subscribers can filter without decoding the body.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"type":       e.Type,
		"kind":       string(e.Kind),
		"collection": e.Collection,
		"outcome":    string(e.Outcome),
	}
}
