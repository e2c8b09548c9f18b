// Package robots implements the crawl-policy probe: it fetches robots.txt and
// decides whether generic crawlers are welcome.
package robots

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/osint"
	"github.com/JakeFAU/sourcescope/internal/probe"
)

// DefaultTimeout bounds the robots.txt GET.
const DefaultTimeout = 5 * time.Second

const (
	maxBodyBytes   = 1 << 20
	previewLength  = 500
	wildcardAgent  = "*"
	userAgentField = "user-agent"
)

// Prober fetches {scheme}://{host}/robots.txt.
type Prober struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

var _ osint.CrawlPolicyProbe = (*Prober)(nil)

// New builds a Prober. A nil transport gets a dedicated one.
func New(cfg probe.Config, transport http.RoundTripper, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		client:    probe.NewClient(cfg, transport, DefaultTimeout),
		userAgent: cfg.UserAgentOrDefault(),
		logger:    logger,
	}
}

// CheckCrawlPolicy implements osint.CrawlPolicyProbe.
func (p *Prober) CheckCrawlPolicy(ctx context.Context, target *url.URL) osint.CrawlPolicyObservation {
	status, body, err := p.fetch(ctx, target)
	if err != nil {
		return osint.CrawlPolicyObservation{Exists: false, Error: err.Error()}
	}
	if status != http.StatusOK {
		return osint.CrawlPolicyObservation{Exists: false}
	}
	return Evaluate(body)
}

// Evaluate applies the crawl-policy heuristic to a robots.txt body that was
// served with status 200.
func Evaluate(body []byte) osint.CrawlPolicyObservation {
	obs := osint.CrawlPolicyObservation{
		Exists:         true,
		ContentPreview: preview(string(body)),
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		obs.Error = fmt.Sprintf("parse robots: %v", err)
		return obs
	}
	allows := declaresWildcard(body) && data.TestAgent("/", wildcardAgent)
	obs.AllowsCrawling = osint.Bool(allows)
	return obs
}

func (p *Prober) fetch(ctx context.Context, target *url.URL) (int, []byte, error) {
	robotsURL := url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Debug("failed to close robots response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read robots body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// declaresWildcard reports whether the file has an explicit "User-agent: *" line.
func declaresWildcard(body []byte) bool {
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), userAgentField) &&
			strings.TrimSpace(value) == wildcardAgent {
			return true
		}
	}
	return false
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLength {
		return s
	}
	return string(runes[:previewLength])
}
