package api

import (
	"errors"
	"net/http"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

type catalogResponse struct {
	WordsPerHour int                `json:"wordsPerHour"`
	ServiceTiers []lead.ServiceTier `json:"serviceTiers"`
	Genres       []lead.Genre       `json:"genres"`
}

func (s *Server) catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalogResponse{
		WordsPerHour: lead.WordsPerHour,
		ServiceTiers: lead.ServiceTiers(),
		Genres:       lead.Genres(),
	})
}

type quoteRequest struct {
	WordCount       int    `json:"wordCount"`
	SelectedService string `json:"selectedService"`
}

type quoteResponse struct {
	lead.Quote
	FormattedHours string `json:"formattedHours"`
	FormattedCost  string `json:"formattedCost"`
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !s.decodeBody(w, r, &req, false) {
		return
	}
	q, err := lead.Estimate(req.WordCount, req.SelectedService)
	if err != nil {
		switch {
		case errors.Is(err, lead.ErrInvalidWordCount), errors.Is(err, lead.ErrUnknownService):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "estimate failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		Quote:          q,
		FormattedHours: q.FormattedHours(),
		FormattedCost:  q.FormattedCost(),
	})
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	var values lead.FormValues
	if !s.decodeBody(w, r, &values, false) {
		return
	}
	writeJSON(w, http.StatusOK, lead.Preview(values))
}

func (s *Server) submitContact(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if !s.decodeBody(w, r, &raw, true) {
		return
	}
	writeResult(w, s.pipeline.SubmitContact(r.Context(), raw))
}

func (s *Server) submitEstimate(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if !s.decodeBody(w, r, &raw, true) {
		return
	}
	writeResult(w, s.pipeline.SubmitEstimate(r.Context(), raw))
}

func writeResult(w http.ResponseWriter, res lead.Result) {
	writeJSON(w, resultStatus(res.Outcome), res)
}

func resultStatus(o lead.Outcome) int {
	switch o {
	case lead.OutcomeInvalid:
		return http.StatusUnprocessableEntity
	case lead.OutcomeStorageFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}
