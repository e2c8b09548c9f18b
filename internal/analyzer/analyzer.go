// Package analyzer runs the four observation probes against a URL and
// classifies the source.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/sourcescope/internal/metrics"
	"github.com/JakeFAU/sourcescope/internal/osint"
)

// Probe names used in logs and metrics.
const (
	ProbeReachability = "reachability"
	ProbeRegistration = "registration"
	ProbeCrawlPolicy  = "crawl_policy"
	ProbeContent      = "content"
)

// Probes bundles the four collectors. Nil entries fall back to Disabled.
type Probes struct {
	Reachability osint.ReachabilityProbe
	Registration osint.RegistrationProbe
	CrawlPolicy  osint.CrawlPolicyProbe
	Content      osint.ContentProbe
}

// Waiter throttles analyses per host.
type Waiter interface {
	Wait(ctx context.Context, host string) error
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithLimiter installs a per-host limiter.
func WithLimiter(w Waiter) Option {
	return func(a *Analyzer) { a.limiter = w }
}

// WithPolicy sets the policy used when a call passes none.
func WithPolicy(p osint.Policy) Option {
	return func(a *Analyzer) {
		if p != nil {
			a.policy = p
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(c osint.Clock) Option {
	return func(a *Analyzer) { a.clock = c }
}

// WithIDGenerator overrides report ID generation.
func WithIDGenerator(g osint.IDGenerator) Option {
	return func(a *Analyzer) { a.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// Analyzer orchestrates one analysis per call; it holds no per-request state.
type Analyzer struct {
	probes  Probes
	limiter Waiter
	policy  osint.Policy
	clock   osint.Clock
	ids     osint.IDGenerator
	logger  *zap.Logger
}

// New builds an Analyzer.
func New(probes Probes, opts ...Option) *Analyzer {
	if probes.Reachability == nil {
		probes.Reachability = Disabled{}
	}
	if probes.Registration == nil {
		probes.Registration = Disabled{}
	}
	if probes.CrawlPolicy == nil {
		probes.CrawlPolicy = Disabled{}
	}
	if probes.Content == nil {
		probes.Content = Disabled{}
	}
	a := &Analyzer{
		probes: probes,
		policy: osint.FullPolicy{},
		clock:  utcClock{},
		ids:    uuidV7{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DefaultPolicy returns the policy used when Analyze gets nil.
func (a *Analyzer) DefaultPolicy() osint.Policy {
	return a.policy
}

// Analyze normalizes rawURL, collects observations and classifies them.
//
// ErrEmptyURL is returned with a zero Report. A malformed URL returns an
// ERROR report together with an error wrapping ErrMalformedURL. Every other
// failure is folded into the report.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, policy osint.Policy) (osint.Report, error) {
	if policy == nil {
		policy = a.policy
	}
	report := osint.Report{Timestamp: a.clock.Now().UTC()}
	id, err := a.ids.NewID()
	if err != nil {
		a.logger.Warn("report id generation failed", zap.Error(err))
	}
	report.ID = id

	target, err := NormalizeURL(rawURL)
	if err != nil {
		if errors.Is(err, ErrEmptyURL) {
			return osint.Report{}, err
		}
		report.URL = rawURL
		report.Error = err.Error()
		report.Result = osint.ErrorResult(err.Error())
		metrics.ObserveClassification(string(report.Result.Category), "")
		return report, err
	}
	report.URL = target.String()
	logger := a.logger.With(zap.String("url", report.URL), zap.String("report_id", report.ID))

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, target.Hostname()); err != nil {
			logger.Warn("analysis throttled", zap.Error(err))
			report.Error = err.Error()
			report.Result = osint.ErrorResult(err.Error())
			metrics.ObserveClassification(string(report.Result.Category), "")
			return report, nil
		}
	}

	metrics.IncAnalysesInFlight()
	defer metrics.DecAnalysesInFlight()

	report.Observations = a.collect(ctx, target, logger)
	report.Result = policy.Classify(report.Observations)
	metrics.ObserveClassification(string(report.Result.Category), string(report.Result.Policy))
	logger.Info("analysis complete",
		zap.String("category", string(report.Result.Category)),
		zap.Int("confidence", report.Result.Confidence),
		zap.String("policy", string(report.Result.Policy)),
	)
	return report, nil
}

// collect runs the four probes concurrently. Each goroutine owns one
// observation; none returns an error, so Wait only joins.
func (a *Analyzer) collect(ctx context.Context, target *url.URL, logger *zap.Logger) osint.Observations {
	var (
		reach   osint.ReachabilityObservation
		reg     osint.RegistrationObservation
		policy  osint.CrawlPolicyObservation
		content osint.ContentObservation
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reach = runProbe(logger, ProbeReachability, func() osint.ReachabilityObservation {
			return a.probes.Reachability.CheckReachability(gctx, target)
		}, func(msg string) osint.ReachabilityObservation {
			return osint.ReachabilityObservation{Error: msg}
		}, func(o osint.ReachabilityObservation) string { return o.Error })
		return nil
	})
	g.Go(func() error {
		reg = runProbe(logger, ProbeRegistration, func() osint.RegistrationObservation {
			return a.probes.Registration.LookupRegistration(gctx, target)
		}, func(msg string) osint.RegistrationObservation {
			return osint.RegistrationObservation{Error: msg}
		}, func(o osint.RegistrationObservation) string { return o.Error })
		return nil
	})
	g.Go(func() error {
		policy = runProbe(logger, ProbeCrawlPolicy, func() osint.CrawlPolicyObservation {
			return a.probes.CrawlPolicy.CheckCrawlPolicy(gctx, target)
		}, func(msg string) osint.CrawlPolicyObservation {
			return osint.CrawlPolicyObservation{Exists: false, Error: msg}
		}, func(o osint.CrawlPolicyObservation) string { return o.Error })
		return nil
	})
	g.Go(func() error {
		content = runProbe(logger, ProbeContent, func() osint.ContentObservation {
			return a.probes.Content.AnalyzeContent(gctx, target)
		}, func(msg string) osint.ContentObservation {
			return osint.ContentObservation{Error: msg}
		}, func(o osint.ContentObservation) string { return o.Error })
		return nil
	})
	_ = g.Wait()

	return osint.Observations{
		Reachability: &reach,
		Registration: &reg,
		CrawlPolicy:  &policy,
		Content:      &content,
	}
}

// runProbe invokes fn, converting a panic into an error-bearing observation
// built by onPanic, and records metrics.
func runProbe[T any](
	logger *zap.Logger,
	name string,
	fn func() T,
	onPanic func(string) T,
	errOf func(T) string,
) (obs T) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("collector panic: %v", rec)
			logger.Error("probe panicked", zap.String("probe", name), zap.Any("panic", rec))
			obs = onPanic(msg)
		}
		outcome := metrics.OutcomeOK
		switch errOf(obs) {
		case "":
		case osint.ErrProbeDisabled.Error():
			outcome = metrics.OutcomeDisabled
		default:
			outcome = metrics.OutcomeError
			logger.Debug("probe reported error", zap.String("probe", name), zap.String("error", errOf(obs)))
		}
		metrics.ObserveProbe(name, outcome, time.Since(start))
	}()
	return fn()
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

type uuidV7 struct{}

func (uuidV7) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}
