package osint

import (
	"context"
	"errors"
	"net/url"
	"time"
)

// ErrProbeDisabled marks observations produced by a probe switched off in config.
var ErrProbeDisabled = errors.New("probe disabled")

// ReachabilityProbe checks whether the target answers a plain GET.
type ReachabilityProbe interface {
	CheckReachability(ctx context.Context, target *url.URL) ReachabilityObservation
}

// RegistrationProbe looks up the registration record of the target's domain.
type RegistrationProbe interface {
	LookupRegistration(ctx context.Context, target *url.URL) RegistrationObservation
}

// CrawlPolicyProbe fetches and evaluates the target's robots.txt.
type CrawlPolicyProbe interface {
	CheckCrawlPolicy(ctx context.Context, target *url.URL) CrawlPolicyObservation
}

// ContentProbe fetches the landing page and runs HTML heuristics over it.
type ContentProbe interface {
	AnalyzeContent(ctx context.Context, target *url.URL) ContentObservation
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces report IDs.
type IDGenerator interface {
	NewID() (string, error)
}
