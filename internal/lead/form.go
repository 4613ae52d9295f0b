package lead

import (
	"math"
	"strings"
	"unicode"
)

// FormValues are the estimator inputs exactly as the visitor typed them.
type FormValues struct {
	WordCount       string `json:"wordCount"`
	SelectedService string `json:"selectedService"`
	Genre           string `json:"genre"`
	Email           string `json:"email"`
}

// FormState is the visibility and derived values of the estimator form.
type FormState struct {
	ShowAdditionalFields bool     `json:"showAdditionalFields"`
	ShowCostDisplay      bool     `json:"showCostDisplay"`
	EstimatedHours       *float64 `json:"estimatedHours,omitempty"`
	EstimatedCost        *float64 `json:"estimatedCost,omitempty"`
}

// Preview derives the estimator form state from its current values. Genre
// and email only count once the additional fields are visible, and the cost
// is only displayed once every prior step is valid.
func Preview(v FormValues) FormState {
	var state FormState
	wordCount := leadingInt(v.WordCount)
	if wordCount > 0 {
		hours := float64(wordCount) / WordsPerHour
		state.EstimatedHours = &hours
		if q, err := Estimate(wordCount, v.SelectedService); err == nil {
			cost := q.Cost
			state.EstimatedCost = &cost
		}
	}
	_, tierOK := LookupTier(v.SelectedService)
	state.ShowAdditionalFields = wordCount > 0 && tierOK
	if !state.ShowAdditionalFields {
		return state
	}
	state.ShowCostDisplay = strings.TrimSpace(v.Genre) != "" && looksLikeEmail(v.Email) && state.EstimatedCost != nil
	return state
}

// looksLikeEmail is the estimator's loose inline check, not the submission
// rule: an "@" followed by a domain containing a dot.
func looksLikeEmail(s string) bool {
	_, domain, ok := strings.Cut(strings.TrimSpace(s), "@")
	return ok && strings.Contains(domain, ".")
}

// leadingInt reads an optionally signed run of digits after leading
// whitespace and ignores whatever follows, so "1200 words" reads as 1200.
// Input without leading digits reads as 0.
func leadingInt(s string) int {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	sign := 1
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > math.MaxInt32 {
			return sign * math.MaxInt32
		}
	}
	return sign * n
}
