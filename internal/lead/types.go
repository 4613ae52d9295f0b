package lead

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies the form a submission came from.
type Kind string

const (
	// KindContact is a message from the contact form.
	KindContact Kind = "contact"
	// KindEstimate is a lead captured by the cost estimator.
	KindEstimate Kind = "estimate"
)

// Source tags stored with every persisted record.
const (
	SourceContactForm   = "ContactForm"
	SourceCostEstimator = "CostEstimator"
)

// Default collection names.
const (
	CollectionContact  = "contactFormSubmissions"
	CollectionEstimate = "estimatorLeads"
)

// Record is a validated lead ready to be persisted, announced and synced.
// Implementations are plain values; a new submission always builds a new one.
type Record interface {
	Kind() Kind
	ContactEmail() string
	Source() string
	Fields() map[string]any
}

// ContactMessage is a validated contact form submission.
type ContactMessage struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=100"`
	Message string `json:"message" validate:"min=10,max=5000"`
}

// Kind implements Record.
func (ContactMessage) Kind() Kind { return KindContact }

// ContactEmail implements Record.
func (c ContactMessage) ContactEmail() string { return c.Email }

// Source implements Record.
func (ContactMessage) Source() string { return SourceContactForm }

// Fields returns the document body persisted for the message.
func (c ContactMessage) Fields() map[string]any {
	return map[string]any{
		"name":    c.Name,
		"email":   c.Email,
		"message": c.Message,
	}
}

// EstimateLead is a validated cost estimator lead.
type EstimateLead struct {
	FirstName       string `json:"firstName,omitempty" validate:"max=100"`
	Email           string `json:"email" validate:"required,email,max=100"`
	WordCount       int    `json:"wordCount" validate:"gt=0"`
	Genre           string `json:"genre" validate:"required,genre"`
	SelectedService string `json:"selectedService" validate:"required,service_tier"`
}

// Kind implements Record.
func (EstimateLead) Kind() Kind { return KindEstimate }

// ContactEmail implements Record.
func (e EstimateLead) ContactEmail() string { return e.Email }

// Source implements Record.
func (EstimateLead) Source() string { return SourceCostEstimator }

// Fields returns the document body persisted for the lead, including the
// quote shown to the visitor at submission time.
func (e EstimateLead) Fields() map[string]any {
	fields := map[string]any{
		"email":           e.Email,
		"wordCount":       e.WordCount,
		"genre":           e.Genre,
		"selectedService": e.SelectedService,
	}
	if e.FirstName != "" {
		fields["firstName"] = e.FirstName
	}
	if q, err := e.Quote(); err == nil {
		fields["estimatedHours"] = q.Hours
		fields["estimatedCost"] = q.Cost
	}
	return fields
}

// Quote computes the estimate for the lead's word count and tier.
func (e EstimateLead) Quote() (Quote, error) {
	return Estimate(e.WordCount, e.SelectedService)
}

// DisplayName returns the first name, or the email local part when the
// estimator did not collect one.
func (e EstimateLead) DisplayName() string {
	if e.FirstName != "" {
		return e.FirstName
	}
	local, _, _ := strings.Cut(e.Email, "@")
	return local
}

// WordCountString renders the word count for string-only sinks.
func (e EstimateLead) WordCountString() string {
	return strconv.Itoa(e.WordCount)
}

// Document is what a Store appends: the record body plus routing metadata.
type Document struct {
	Collection string
	Kind       Kind
	Source     string
	Email      string
	Fields     map[string]any
}

// NewDocument builds the Document for rec in collection.
func NewDocument(collection string, rec Record) Document {
	return Document{
		Collection: collection,
		Kind:       rec.Kind(),
		Source:     rec.Source(),
		Email:      rec.ContactEmail(),
		Fields:     rec.Fields(),
	}
}

// Receipt is returned by a Store after a successful append.
type Receipt struct {
	ID        string
	CreatedAt time.Time
}
