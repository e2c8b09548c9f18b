// Package collyprobe implements the reachability and content probes on top of gocolly.
package collyprobe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/probe"
)

// DefaultTimeout bounds a single probe GET when the config leaves it unset.
const DefaultTimeout = 10 * time.Second

var errTooManyRedirects = errors.New("stopped after too many redirects")

// collectorHooks is the subset of *colly.Collector the probes register on.
type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// page is what one visit yields.
type page struct {
	status     int
	finalURL   string
	body       []byte
	redirected bool
	elapsed    time.Duration
}

// visitor performs one colly GET per call. Collectors are built per visit
// because colly clones share their HTTP client, so per-call timeout and
// redirect state would otherwise leak between concurrent probes.
type visitor struct {
	cfg       probe.Config
	transport http.RoundTripper
	logger    *zap.Logger
}

func newVisitor(cfg probe.Config, transport http.RoundTripper, logger *zap.Logger) *visitor {
	if transport == nil {
		transport = probe.NewTransport(cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &visitor{cfg: cfg, transport: transport, logger: logger}
}

func (v *visitor) visit(ctx context.Context, target string) (page, error) {
	var (
		result   page
		fetchErr error
	)
	start := time.Now()
	collector := v.buildCollector(&result)
	v.configureCollectorHooks(collector, start, &result, &fetchErr)

	if err := runCollector(ctx, collector, target, &fetchErr); err != nil {
		// result may still be written by an abandoned visit; do not hand it out.
		return page{elapsed: time.Since(start)}, err
	}
	return result, nil
}

func (v *visitor) buildCollector(result *page) *colly.Collector {
	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = v.cfg.UserAgentOrDefault()
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	c.WithTransport(v.transport)
	c.SetRequestTimeout(v.cfg.TimeoutOr(DefaultTimeout))
	c.SetRedirectHandler(func(_ *http.Request, via []*http.Request) error {
		result.redirected = true
		if len(via) > probe.MaxRedirects {
			return errTooManyRedirects
		}
		return nil
	})
	return c
}

func (v *visitor) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *page,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
		if r.Request != nil && r.Request.URL != nil {
			result.finalURL = r.Request.URL.String()
		}
		result.body = append([]byte(nil), r.Body...)
		result.elapsed = time.Since(start)
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
		v.logger.Debug("probe visit failed", zap.Error(err))
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, target string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("probe canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("probe response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("probe visit failed: %w", err)
		}
		return nil
	}
}
