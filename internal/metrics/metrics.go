// Package metrics exposes Prometheus collectors for the lead service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	submissionsTotal           *prometheus.CounterVec
	stepTotal                  *prometheus.CounterVec
	externalCallSeconds        *prometheus.HistogramVec
	eventsPublishedTotal       *prometheus.CounterVec
	rateLimitedTotal           *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors. It is safe to call
// multiple times; the Observe functions call it on first use.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)

		submissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_submissions_total",
				Help: "Submissions processed, labeled by kind and terminal outcome.",
			},
			[]string{"kind", "outcome"},
		)

		stepTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_step_total",
				Help: "Pipeline step results, labeled by step and result.",
			},
			[]string{"step", "result"},
		)

		externalCallSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leads_external_call_seconds",
				Help:    "Latency of calls to the store, mail transport and CRM.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"step"},
		)

		eventsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_events_published_total",
				Help: "Lead events handed to a sink, labeled by sink and result.",
			},
			[]string{"sink", "result"},
		)

		rateLimitedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_rate_limited_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
			[]string{"route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSubmission counts a finished submission.
func ObserveSubmission(kind, outcome string) {
	Init()
	submissionsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveStep records one pipeline step result and, when the step called
// out to a collaborator, its latency.
func ObserveStep(step, result string, duration time.Duration) {
	Init()
	stepTotal.WithLabelValues(step, result).Inc()
	if duration > 0 {
		externalCallSeconds.WithLabelValues(step).Observe(duration.Seconds())
	}
}

// ObserveEvent counts a lead event publish attempt.
func ObserveEvent(sink string, err error) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsPublishedTotal.WithLabelValues(sink, result).Inc()
}

// ObserveRateLimited counts a throttled request.
func ObserveRateLimited(route string) {
	Init()
	rateLimitedTotal.WithLabelValues(route).Inc()
}
