package lead

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorageUnavailable marks a store that cannot be reached or was never
	// initialized. It is fatal to a submission.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConfigurationMissing marks a collaborator whose credentials are absent.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrAlreadyCaptured is returned when the dedup policy finds an earlier
	// record for the same email.
	ErrAlreadyCaptured = errors.New("already captured")
	// ErrUnknownService is returned for a tier identifier outside the catalog.
	ErrUnknownService = errors.New("unknown service tier")
	// ErrInvalidWordCount is returned for a non-positive word count.
	ErrInvalidWordCount = errors.New("word count must be positive")
)

// WriteError is a store rejection that is not an availability problem. Code
// is a coarse backend code that is safe to show to a visitor.
type WriteError struct {
	Code string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("write failed (code %s)", e.Code)
	}
	return fmt.Sprintf("write failed (code %s): %v", e.Code, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FieldError lists the messages for one invalid input field.
type FieldError struct {
	Field    string
	Messages []string
}

// ValidationError collects every failing field of one input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Summary()
}

// Summary renders "field: msg, msg; field: msg" in field order.
func (e *ValidationError) Summary() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+strings.Join(f.Messages, ", "))
	}
	return strings.Join(parts, "; ")
}

// Map returns the field messages keyed by field name.
func (e *ValidationError) Map() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append([]string(nil), f.Messages...)
	}
	return out
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Diagnoser is implemented by collaborator errors that carry a diagnostic
// extracted from a remote response.
type Diagnoser interface {
	Diagnostic() string
}
