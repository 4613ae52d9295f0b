// Package notify renders the operator notification for a captured lead.
// Transports live in subpackages.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

// Email is a rendered plain-text notification.
type Email struct {
	Subject string
	Body    string
}

// Compose renders the fixed operator template for rec.
func Compose(rec lead.Record) (Email, error) {
	switch r := rec.(type) {
	case lead.ContactMessage:
		return Email{
			Subject: "New Contact Form Submission from " + r.Name,
			Body:    fmt.Sprintf("Name: %s\nEmail: %s\nMessage:\n%s", r.Name, r.Email, r.Message),
		}, nil
	case lead.EstimateLead:
		return composeEstimate(r), nil
	default:
		return Email{}, fmt.Errorf("no notification template for %T", rec)
	}
}

func composeEstimate(r lead.EstimateLead) Email {
	var b strings.Builder
	if r.FirstName != "" {
		fmt.Fprintf(&b, "First name: %s\n", r.FirstName)
	}
	fmt.Fprintf(&b, "Email: %s\n", r.Email)
	fmt.Fprintf(&b, "Word count: %d\n", r.WordCount)

	genre := r.Genre
	if g, ok := lead.LookupGenre(r.Genre); ok {
		genre = g.Label
	}
	fmt.Fprintf(&b, "Genre: %s\n", genre)

	service := r.SelectedService
	if t, ok := lead.LookupTier(r.SelectedService); ok {
		service = t.Label
	}
	fmt.Fprintf(&b, "Service level: %s\n", service)

	if q, err := r.Quote(); err == nil {
		fmt.Fprintf(&b, "Estimated hours: %s\n", q.FormattedHours())
		fmt.Fprintf(&b, "Estimated cost: %s\n", q.FormattedCost())
	}
	return Email{
		Subject: "New Cost Estimate Lead from " + r.Email,
		Body:    b.String(),
	}
}

// Disabled is the Notifier used when mail credentials are absent.
type Disabled struct{}

// Notify always reports the missing configuration.
func (Disabled) Notify(context.Context, lead.Record) error {
	return fmt.Errorf("%w: mail username and password are not set", lead.ErrConfigurationMissing)
}
