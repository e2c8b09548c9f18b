package analyzer

import (
	"context"
	"net/url"

	"github.com/JakeFAU/sourcescope/internal/osint"
)

// Disabled stands in for any probe switched off in config. It never touches
// the network and reports osint.ErrProbeDisabled.
type Disabled struct{}

var (
	_ osint.ReachabilityProbe = Disabled{}
	_ osint.RegistrationProbe = Disabled{}
	_ osint.CrawlPolicyProbe  = Disabled{}
	_ osint.ContentProbe      = Disabled{}
)

// CheckReachability implements osint.ReachabilityProbe.
func (Disabled) CheckReachability(context.Context, *url.URL) osint.ReachabilityObservation {
	return osint.ReachabilityObservation{Error: osint.ErrProbeDisabled.Error()}
}

// LookupRegistration implements osint.RegistrationProbe.
func (Disabled) LookupRegistration(context.Context, *url.URL) osint.RegistrationObservation {
	return osint.RegistrationObservation{Error: osint.ErrProbeDisabled.Error()}
}

// CheckCrawlPolicy implements osint.CrawlPolicyProbe.
func (Disabled) CheckCrawlPolicy(context.Context, *url.URL) osint.CrawlPolicyObservation {
	return osint.CrawlPolicyObservation{Exists: false, Error: osint.ErrProbeDisabled.Error()}
}

// AnalyzeContent implements osint.ContentProbe.
func (Disabled) AnalyzeContent(context.Context, *url.URL) osint.ContentObservation {
	return osint.ContentObservation{Error: osint.ErrProbeDisabled.Error()}
}
