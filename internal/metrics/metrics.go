// Package metrics exposes Prometheus collectors for the sourcescope services.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDisabled = "disabled"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	probeObservationsTotal     *prometheus.CounterVec
	probeDurationSeconds       *prometheus.HistogramVec
	classificationsTotal       *prometheus.CounterVec
	analysesInFlight           prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	llmRequestsTotal           *prometheus.CounterVec
	llmRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)

		probeObservationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcescope_probe_observations_total",
				Help: "Observations produced by each probe, labeled by outcome.",
			},
			[]string{"probe", "outcome"},
		)

		probeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sourcescope_probe_duration_seconds",
				Help:    "Histogram of probe latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"probe"},
		)

		classificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcescope_classifications_total",
				Help: "Classification results, labeled by category and policy.",
			},
			[]string{"category", "policy"},
		)

		analysesInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sourcescope_analyses_in_flight",
				Help: "Number of analyses currently running.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sourcescope_rate_limit_delays_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		llmRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcescope_llm_requests_total",
				Help: "Upstream LLM calls, labeled by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		)

		llmRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sourcescope_llm_request_duration_seconds",
				Help:    "Histogram of upstream LLM call latencies.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
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

// ObserveProbe records one probe run.
func ObserveProbe(probe, outcome string, duration time.Duration) {
	Init()
	probeObservationsTotal.WithLabelValues(probe, outcome).Inc()
	probeDurationSeconds.WithLabelValues(probe).Observe(duration.Seconds())
}

// ObserveClassification counts one classification result.
func ObserveClassification(category, policy string) {
	Init()
	if policy == "" {
		policy = "none"
	}
	classificationsTotal.WithLabelValues(category, policy).Inc()
}

// IncAnalysesInFlight increments the in-flight analyses gauge.
func IncAnalysesInFlight() {
	Init()
	analysesInFlight.Inc()
}

// DecAnalysesInFlight decrements the in-flight analyses gauge.
func DecAnalysesInFlight() {
	Init()
	analysesInFlight.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(SanitizeSite(domain)).Observe(duration.Seconds())
}

// ObserveLLMRequest records one upstream LLM call.
func ObserveLLMRequest(operation, outcome string, duration time.Duration) {
	Init()
	llmRequestsTotal.WithLabelValues(operation, outcome).Inc()
	llmRequestDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}
