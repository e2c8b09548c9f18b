// Package cmd hosts the sourcescope cobra commands.
//
// Architecture overview:
//   - serve: internal/api.Server exposes health, metrics, and POST /v1/analyze. Requests are validated,
//     normalized, and handed to internal/analyzer, which waits on the per-host limiter and then runs the
//     reachability, registration, crawl-policy, and content probes concurrently before scoring them with the
//     configured classification policy.
//   - Probes: reachability and content share one Colly-based visitor per request over a single tuned transport;
//     robots.txt is fetched directly and evaluated with temoto/robotstxt; registration data comes from WHOIS.
//     Probe failures are folded into the report, so a partially failed analysis still classifies.
//   - chat: internal/chatapi.Server proxies prompts to an OpenAI-compatible LLM, registers users into a JSON
//     file store, issues HS256 bearer tokens, and generates profile articles with extracted topic links.
//   - analyze: one-shot classification of a single URL printed as JSON.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging;
//     Prometheus metrics are exported via the metrics middleware and /metrics handler.
//
// Operational notes:
//   - Concurrency model: requests are synchronous; each analysis fans out to four goroutines sharing the request
//     context. The per-host limiter map and the user store are the only shared mutable state.
//   - TLS: certificate checks can be disabled for probes only (http.insecure_skip_verify); the LLM client and the
//     process-wide default transport are never affected.
//   - Shutdown: both servers react to SIGINT/SIGTERM and drain in-flight requests for server.shutdown_timeout_seconds.
//
// Quick checklist:
//   - Configure env vars: SOURCESCOPE_SERVER_PORT, SOURCESCOPE_AUTH_ENABLED/SOURCESCOPE_AUTH_API_KEY,
//     SOURCESCOPE_PROBES_<NAME>_ENABLED, SOURCESCOPE_RATELIMIT_RPS, and for chat SOURCESCOPE_LLM_API_KEY
//     (or MISTRAL_API_KEY) plus SOURCESCOPE_JWT_SECRET_KEY (or SECRET_KEY); chat refuses to start without a
//     secret of at least 32 bytes.
//   - Run locally: go run . serve --config config.yaml, or go run . analyze example.com.
package cmd
