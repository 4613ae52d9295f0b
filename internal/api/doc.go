// Package api hosts the HTTP server, middleware, and JSON handlers of the
// lead-capture service. Notable routes:
//   - GET /healthz and /readyz for probes; readyz checks the document store.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/catalog and POST /v1/estimate/{quote,preview} for the calculator.
//   - POST /v1/contact and /v1/estimate/leads for submissions.
//   - /api/agiled/* forwarded to the CRM public API.
package api
