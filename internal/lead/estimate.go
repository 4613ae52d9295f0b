package lead

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Quote is the derived cost estimate for a manuscript and tier.
type Quote struct {
	WordCount int         `json:"wordCount"`
	Service   ServiceTier `json:"service"`
	Hours     float64     `json:"hours"`
	Cost      float64     `json:"cost"`
}

// Estimate computes (wordCount / WordsPerHour) * hourly rate. It has no side
// effects and never rounds; formatting is left to FormattedHours and
// FormattedCost.
func Estimate(wordCount int, serviceID string) (Quote, error) {
	if wordCount <= 0 {
		return Quote{}, fmt.Errorf("%w: %d", ErrInvalidWordCount, wordCount)
	}
	tier, ok := LookupTier(serviceID)
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownService, serviceID)
	}
	hours := float64(wordCount) / WordsPerHour
	return Quote{
		WordCount: wordCount,
		Service:   tier,
		Hours:     hours,
		Cost:      hours * tier.HourlyRate,
	}, nil
}

var enPrinter = message.NewPrinter(language.English)

// FormattedHours renders hours with two decimals, e.g. "10.00".
func (q Quote) FormattedHours() string {
	return fmt.Sprintf("%.2f", q.Hours)
}

// FormattedCost renders the cost in US dollars with grouping, e.g. "$1,500.00".
func (q Quote) FormattedCost() string {
	return enPrinter.Sprintf("$%.2f", q.Cost)
}
