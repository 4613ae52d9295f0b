package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/narration-leads/internal/config"
	"github.com/JakeFAU/narration-leads/internal/events"
	"github.com/JakeFAU/narration-leads/internal/lead"
	"github.com/JakeFAU/narration-leads/internal/metrics"
)

// Submitter runs the submission pipeline for raw form input.
type Submitter interface {
	SubmitContact(ctx context.Context, raw map[string]any) lead.Result
	SubmitEstimate(ctx context.Context, raw map[string]any) lead.Result
}

// Readiness reports whether the document store can accept writes.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Limiter decides whether a client may submit now.
type Limiter interface {
	Allow(key string) bool
}

// EventLog lists recently emitted lead events.
type EventLog interface {
	Messages() []events.Message
}

// Deps are the collaborators behind the HTTP surface. Limiter, CRMProxy and
// Events are optional.
type Deps struct {
	Pipeline Submitter
	Store    Readiness
	Limiter  Limiter
	CRMProxy http.Handler
	Events   EventLog
	Logger   *zap.Logger
}

// Server wires HTTP handlers to the submission pipeline.
type Server struct {
	router   chi.Router
	pipeline Submitter
	store    Readiness
	events   EventLog
	cfg      config.Config
	logger   *zap.Logger
}

const readyTimeout = 2 * time.Second

// NewServer constructs a Server with middleware and routes.
func NewServer(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline: deps.Pipeline,
		store:    deps.Store,
		events:   deps.Events,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	operator := func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(cfg.RequestTimeout()))

		r.Get("/healthz", s.healthz)
		r.Get("/readyz", s.readyz)
		r.Group(func(r chi.Router) {
			operator(r)
			r.Method(http.MethodGet, "/metrics", metrics.Handler())
		})

		r.Get("/v1/catalog", s.catalog)
		r.Post("/v1/estimate/quote", s.quote)
		r.Post("/v1/estimate/preview", s.preview)
		r.Group(func(r chi.Router) {
			operator(r)
			r.Get("/v1/admin/capabilities", s.capabilities)
			if deps.Events != nil {
				r.Get("/v1/admin/events", s.recentEvents)
			}
		})
	})

	// Submissions are bounded by the pipeline's per-step deadlines. A request
	// deadline here could answer 503 for a lead that was already persisted.
	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(rateLimitMiddleware(deps.Limiter))
		}
		r.Post("/v1/estimate/leads", s.submitEstimate)
		r.Post("/v1/contact", s.submitContact)
	})

	if cfg.CRM.ProxyEnabled && deps.CRMProxy != nil {
		prefix := strings.TrimRight(cfg.CRM.ProxyPrefix, "/")
		r.Handle(prefix+"/*", deps.CRMProxy)
	}

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.store.Ready(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) capabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Capabilities())
}

type eventsResponse struct {
	Events []json.RawMessage `json:"events"`
}

func (s *Server) recentEvents(w http.ResponseWriter, _ *http.Request) {
	msgs := s.events.Messages()
	out := eventsResponse{Events: make([]json.RawMessage, 0, len(msgs))}
	for i := len(msgs) - 1; i >= 0; i-- {
		if json.Valid(msgs[i].Data) {
			out.Events = append(out.Events, msgs[i].Data)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeBody decodes a size-limited JSON body into dst. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any, useNumber bool) bool {
	if s.cfg.HTTP.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.HTTP.MaxBodyBytes))
	}
	dec := json.NewDecoder(r.Body)
	if useNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
