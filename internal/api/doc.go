// Package api hosts the optional status server that runs next to a harvest or normalization.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the progress of the current run.
//   - GET /v1/sources, /v1/sources/{id} and /v1/entities for stored totals.
package api
