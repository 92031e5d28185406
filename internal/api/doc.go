// Package api hosts the read-only status server that runs alongside a crawl.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the scheduler and sink counters of the current run.
package api
