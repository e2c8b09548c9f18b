package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/analyzer"
	"github.com/JakeFAU/sourcescope/internal/osint"
)

type fakeAnalyzer struct {
	mu     sync.Mutex
	report osint.Report
	err    error
	delay  time.Duration
	calls  []fakeCall
}

type fakeCall struct {
	url    string
	policy osint.Policy
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, rawURL string, policy osint.Policy) (osint.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{url: rawURL, policy: policy})
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return osint.Report{}, ctx.Err()
		}
	}
	return f.report, f.err
}

func (f *fakeAnalyzer) lastCall(t *testing.T) fakeCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func okReport() osint.Report {
	return osint.Report{
		ID:        "rep-1",
		URL:       "https://example.com",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Result: osint.Result{
			Category:   osint.CategoryOSINT,
			Confidence: 100,
			ScoreRaw:   100,
			Reasons:    []string{"reachable, HTTP 200"},
		},
	}
}

func newTestServer(a Analyzer, opts Options) *Server {
	return NewServer(a, opts, zap.NewNop())
}

func post(t *testing.T, s *Server, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Analyze_Succeeds(t *testing.T) {
	t.Parallel()

	fake := &fakeAnalyzer{report: okReport()}
	server := newTestServer(fake, Options{})

	for _, path := range []string{"/v1/analyze", "/analyze"} {
		rec := post(t, server, path, `{"url":"example.com"}`, nil)

		require.Equal(t, http.StatusOK, rec.Code, path)
		var got osint.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "rep-1", got.ID)
		assert.Equal(t, osint.CategoryOSINT, got.Result.Category)
		assert.Equal(t, "example.com", fake.lastCall(t).url)
		assert.Nil(t, fake.lastCall(t).policy)
	}
}

func TestServer_Analyze_PassesPolicy(t *testing.T) {
	t.Parallel()

	fake := &fakeAnalyzer{report: okReport()}
	server := newTestServer(fake, Options{})

	rec := post(t, server, "/v1/analyze", `{"url":"example.com","policy":"simple"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	policy := fake.lastCall(t).policy
	require.NotNil(t, policy)
	assert.Equal(t, osint.PolicySimple, policy.Name())
}

func TestServer_Analyze_BadRequests(t *testing.T) {
	t.Parallel()

	fake := &fakeAnalyzer{report: okReport()}
	server := newTestServer(fake, Options{})

	cases := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{invalid`, "invalid JSON"},
		{"missing url", `{}`, analyzer.ErrEmptyURL.Error()},
		{"blank url", `{"url":"   "}`, analyzer.ErrEmptyURL.Error()},
		{"unknown policy", `{"url":"example.com","policy":"aggressive"}`, "unknown classification policy"},
	}
	for _, tc := range cases {
		rec := post(t, server, "/v1/analyze", tc.body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
		assert.Contains(t, rec.Body.String(), tc.want, tc.name)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.calls)
}

func TestServer_Analyze_MalformedURL(t *testing.T) {
	t.Parallel()

	report := osint.Report{
		URL:    "ftp://example.com",
		Result: osint.ErrorResult("malformed url"),
		Error:  "malformed url",
	}
	fake := &fakeAnalyzer{report: report, err: analyzer.ErrMalformedURL}
	server := newTestServer(fake, Options{})

	rec := post(t, server, "/v1/analyze", `{"url":"ftp://example.com"}`, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var got osint.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, osint.CategoryError, got.Result.Category)
}

func TestServer_Analyze_InternalError(t *testing.T) {
	t.Parallel()

	fake := &fakeAnalyzer{err: errors.New("boom")}
	server := newTestServer(fake, Options{})

	rec := post(t, server, "/v1/analyze", `{"url":"example.com"}`, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"analysis failed"}`, rec.Body.String())
}

func TestServer_Analyze_Timeout(t *testing.T) {
	t.Parallel()

	fake := &fakeAnalyzer{report: okReport(), delay: time.Second}
	server := newTestServer(fake, Options{RequestTimeout: 20 * time.Millisecond})

	rec := post(t, server, "/v1/analyze", `{"url":"example.com"}`, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_APIKeyGuardsAnalyzeOnly(t *testing.T) {
	t.Parallel()

	fake := &fakeAnalyzer{report: okReport()}
	server := newTestServer(fake, Options{APIKey: "secret"})

	rec := post(t, server, "/v1/analyze", `{"url":"example.com"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post(t, server, "/v1/analyze", `{"url":"example.com"}`, map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeAnalyzer{}, Options{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestServer_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeAnalyzer{}, Options{})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyze", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
