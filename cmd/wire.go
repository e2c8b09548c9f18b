package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/analyzer"
	"github.com/JakeFAU/sourcescope/internal/config"
	"github.com/JakeFAU/sourcescope/internal/osint"
	"github.com/JakeFAU/sourcescope/internal/policy/ratelimit"
	"github.com/JakeFAU/sourcescope/internal/probe"
	collyprobe "github.com/JakeFAU/sourcescope/internal/probe/colly"
	"github.com/JakeFAU/sourcescope/internal/probe/registration"
	"github.com/JakeFAU/sourcescope/internal/probe/robots"
)

// buildAnalyzer wires the enabled probes, the per-host limiter, and the
// default policy from cfg.
func buildAnalyzer(cfg config.Config, logger *zap.Logger) (*analyzer.Analyzer, error) {
	base := probe.Config{
		UserAgent:          cfg.HTTP.UserAgent,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
	}
	transport := probe.NewTransport(base)

	probes := analyzer.Probes{}
	if p := cfg.Probes.Reachability; p.Enabled {
		probes.Reachability = collyprobe.NewReachabilityProber(withTimeout(base, p), transport, logger)
	}
	if p := cfg.Probes.Content; p.Enabled {
		probes.Content = collyprobe.NewContentProber(withTimeout(base, p), transport, logger)
	}
	if p := cfg.Probes.CrawlPolicy; p.Enabled {
		probes.CrawlPolicy = robots.New(withTimeout(base, p), transport, logger)
	}
	if p := cfg.Probes.Registration; p.Enabled {
		probes.Registration = registration.New(p.Timeout(), logger)
	}

	policy, err := osint.ParsePolicy(cfg.Classifier.Policy)
	if err != nil {
		return nil, fmt.Errorf("classifier.policy: %w", err)
	}
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.RateLimit.RPS,
		DefaultBurst: cfg.RateLimit.Burst,
	})

	return analyzer.New(probes,
		analyzer.WithPolicy(policy),
		analyzer.WithLimiter(limiter),
		analyzer.WithLogger(logger.Named("analyzer")),
	), nil
}

func withTimeout(base probe.Config, p config.ProbeConfig) probe.Config {
	base.Timeout = p.Timeout()
	return base
}

