// Package crm maps captured leads onto the CRM contact schema.
package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

// Tag sets attached to synced contacts.
const (
	TagsEstimate = "cost_estimator_lead, narration_services"
	TagsContact  = "contact_form_lead"
)

// Fallback last names for records that do not carry one.
const (
	LastNameEstimate = "From Estimator"
	LastNameContact  = "From Contact Form"
)

// CustomField is one key/value pair of the contact's custom fields.
type CustomField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Contact is the body of a create-contact call.
type Contact struct {
	Email        string        `json:"email"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Role         string        `json:"role"`
	Tags         string        `json:"tags"`
	CustomFields []CustomField `json:"custom_fields"`
}

// BuildContact maps rec onto the CRM contact schema.
func BuildContact(rec lead.Record) (Contact, error) {
	switch r := rec.(type) {
	case lead.EstimateLead:
		fields := []CustomField{
			{Key: "estimator_word_count", Value: r.WordCountString()},
			{Key: "estimator_genre", Value: r.Genre},
			{Key: "estimator_service_level", Value: r.SelectedService},
		}
		if q, err := r.Quote(); err == nil {
			fields = append(fields, CustomField{Key: "estimator_estimated_cost", Value: q.FormattedCost()})
		}
		return Contact{
			Email:        r.Email,
			FirstName:    r.DisplayName(),
			LastName:     LastNameEstimate,
			Role:         "Lead",
			Tags:         TagsEstimate,
			CustomFields: fields,
		}, nil
	case lead.ContactMessage:
		first, last := splitName(r.Name)
		if last == "" {
			last = LastNameContact
		}
		return Contact{
			Email:     r.Email,
			FirstName: first,
			LastName:  last,
			Role:      "Lead",
			Tags:      TagsContact,
			CustomFields: []CustomField{
				{Key: "contact_message", Value: r.Message},
			},
		}, nil
	default:
		return Contact{}, fmt.Errorf("no CRM mapping for %T", rec)
	}
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// SyncError is a non-2xx answer from the CRM.
type SyncError struct {
	Status int
	Body   string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("crm responded with status %d", e.Status)
}

// Diagnostic returns the remote response body, trimmed.
func (e *SyncError) Diagnostic() string {
	return e.Body
}

// Disabled is the CRM used when no API key is configured.
type Disabled struct{}

// Sync always reports the missing configuration.
func (Disabled) Sync(context.Context, lead.Record) error {
	return fmt.Errorf("%w: crm api key is not set", lead.ErrConfigurationMissing)
}
