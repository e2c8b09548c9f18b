// Package api hosts the HTTP server for source classification. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/analyze (and the older POST /analyze) taking {"url", "policy"}
//     and answering with the full analysis report.
package api
