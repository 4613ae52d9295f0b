package lead

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator turns raw form input into typed records.
type Validator struct {
	validate         *validator.Validate
	requireFirstName bool
}

// ValidatorOption customizes a Validator.
type ValidatorOption func(*Validator)

// RequireFirstName makes firstName mandatory on estimator leads.
func RequireFirstName(required bool) ValidatorOption {
	return func(v *Validator) { v.requireFirstName = required }
}

// NewValidator builds a Validator with the catalog rules registered.
func NewValidator(opts ...ValidatorOption) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = validate.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
		_, ok := LookupGenre(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("service_tier", func(fl validator.FieldLevel) bool {
		_, ok := LookupTier(fl.Field().String())
		return ok
	})
	v := &Validator{validate: validate}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var contactFieldOrder = []string{"name", "email", "message"}

var estimateFieldOrder = []string{"firstName", "email", "wordCount", "genre", "selectedService"}

// fieldMessages maps field -> validator tag -> visitor-facing message.
var fieldMessages = map[string]map[string]string{
	"name": {
		"required": "Name is required",
		"max":      "Name must be 100 characters or less",
	},
	"email": {
		"required": "Email is required",
		"email":    "Invalid email address",
		"max":      "Email must be 100 characters or less",
	},
	"message": {
		"min": "Message must be at least 10 characters long",
		"max": "Message must be 5000 characters or less",
	},
	"firstName": {
		"required": "First name is required",
		"max":      "First name must be 100 characters or less",
	},
	"wordCount": {
		"gt": "Word count must be a positive number",
	},
	"genre": {
		"required": "Genre is required",
		"genre":    "Genre must be one of the listed genres",
	},
	"selectedService": {
		"required":     "Service level is required",
		"service_tier": "Service level must be one of: " + strings.Join(tierIDs(), ", "),
	},
}

// ContactMessage validates raw contact form input. On failure the error is a
// *ValidationError listing every failing field.
func (v *Validator) ContactMessage(raw map[string]any) (ContactMessage, error) {
	errs := newFieldErrors()
	msg := ContactMessage{
		Name:    errs.str(raw, "name"),
		Email:   errs.str(raw, "email"),
		Message: errs.str(raw, "message"),
	}
	errs.addStruct(v.validate.Struct(msg))
	if err := errs.result(contactFieldOrder); err != nil {
		return ContactMessage{}, err
	}
	return msg, nil
}

// EstimateLead validates raw estimator input. On failure the error is a
// *ValidationError listing every failing field.
func (v *Validator) EstimateLead(raw map[string]any) (EstimateLead, error) {
	errs := newFieldErrors()
	est := EstimateLead{
		FirstName:       errs.str(raw, "firstName"),
		Email:           errs.str(raw, "email"),
		WordCount:       errs.wordCount(raw, "wordCount"),
		Genre:           errs.str(raw, "genre"),
		SelectedService: errs.str(raw, "selectedService"),
	}
	if v.requireFirstName && est.FirstName == "" {
		errs.add("firstName", fieldMessages["firstName"]["required"])
	}
	errs.addStruct(v.validate.Struct(est))
	if err := errs.result(estimateFieldOrder); err != nil {
		return EstimateLead{}, err
	}
	return est, nil
}

type fieldErrors struct {
	byField map[string][]string
}

func newFieldErrors() *fieldErrors {
	return &fieldErrors{byField: make(map[string][]string)}
}

func (f *fieldErrors) add(field, msg string) {
	f.byField[field] = append(f.byField[field], msg)
}

// str reads a string field as submitted. Length rules count the untrimmed
// value, so padding counts toward both minimum and maximum, and the record
// keeps exactly what the visitor sent. Missing and null values read as
// empty so the struct rules report them.
func (f *fieldErrors) str(raw map[string]any, field string) string {
	val, ok := raw[field]
	if !ok || val == nil {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		f.add(field, fmt.Sprintf("%s must be text", label(field)))
		return ""
	}
	return s
}

// wordCount accepts JSON numbers, json.Number, Go integers and numeric
// strings, and requires an integral value.
func (f *fieldErrors) wordCount(raw map[string]any, field string) int {
	val, ok := raw[field]
	if !ok || val == nil {
		f.add(field, "Word count is required")
		return 0
	}
	var n float64
	switch t := val.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			f.add(field, "Word count must be a number")
			return 0
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			f.add(field, "Word count must be a number")
			return 0
		}
		n = parsed
	default:
		f.add(field, "Word count must be a number")
		return 0
	}
	if n != math.Trunc(n) || math.IsInf(n, 0) {
		f.add(field, "Word count must be a whole number")
		return 0
	}
	if n > math.MaxInt32 {
		f.add(field, "Word count is too large")
		return 0
	}
	return int(n)
}

// addStruct folds validator errors in, skipping fields that already failed
// type coercion so a visitor sees one reason per mistake.
func (f *fieldErrors) addStruct(err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		f.add("input", "Please check your input.")
		return
	}
	coerced := make(map[string]bool, len(f.byField))
	for field := range f.byField {
		coerced[field] = true
	}
	for _, fe := range verrs {
		field := fe.Field()
		if coerced[field] {
			continue
		}
		msg, ok := fieldMessages[field][fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", label(field))
		}
		f.add(field, msg)
	}
}

func (f *fieldErrors) result(order []string) error {
	if len(f.byField) == 0 {
		return nil
	}
	out := &ValidationError{}
	for _, field := range order {
		if msgs, ok := f.byField[field]; ok {
			out.Fields = append(out.Fields, FieldError{Field: field, Messages: msgs})
			delete(f.byField, field)
		}
	}
	for field, msgs := range f.byField {
		out.Fields = append(out.Fields, FieldError{Field: field, Messages: msgs})
	}
	return out
}

func label(field string) string {
	switch field {
	case "firstName":
		return "First name"
	case "wordCount":
		return "Word count"
	case "selectedService":
		return "Service level"
	case "":
		return "Field"
	default:
		return strings.ToUpper(field[:1]) + field[1:]
	}
}
