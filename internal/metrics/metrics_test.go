package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, httpRequestsTotal)
	require.NotNil(t, probeObservationsTotal)
	require.NotNil(t, classificationsTotal)
	require.NotNil(t, llmRequestsTotal)
}

func TestObserveProbe(t *testing.T) {
	Init()
	before := testutil.ToFloat64(probeObservationsTotal.WithLabelValues("robots", OutcomeError))

	ObserveProbe("robots", OutcomeError, 20*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(probeObservationsTotal.WithLabelValues("robots", OutcomeError)))
}

func TestObserveClassification(t *testing.T) {
	Init()
	before := testutil.ToFloat64(classificationsTotal.WithLabelValues("ERROR", "none"))

	ObserveClassification("ERROR", "")

	assert.Equal(t, before+1, testutil.ToFloat64(classificationsTotal.WithLabelValues("ERROR", "none")))
}

func TestAnalysesInFlight(t *testing.T) {
	Init()
	before := testutil.ToFloat64(analysesInFlight)

	IncAnalysesInFlight()
	assert.Equal(t, before+1, testutil.ToFloat64(analysesInFlight))
	DecAnalysesInFlight()
	assert.Equal(t, before, testutil.ToFloat64(analysesInFlight))
}

func TestObserveRateLimitDelaySanitizesDomain(t *testing.T) {
	Init()

	ObserveRateLimitDelay("Example.COM:443", time.Second)

	assert.Positive(t, testutil.CollectAndCount(rateLimitDelaysSeconds))
}

func TestObserveLLMRequest(t *testing.T) {
	Init()
	before := testutil.ToFloat64(llmRequestsTotal.WithLabelValues("chat", OutcomeOK))

	ObserveLLMRequest("chat", OutcomeOK, time.Second)

	assert.Equal(t, before+1, testutil.ToFloat64(llmRequestsTotal.WithLabelValues("chat", OutcomeOK)))
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
