package collyprobe

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/osint"
	"github.com/JakeFAU/sourcescope/internal/probe"
)

// ReachabilityProber issues one GET and records how the target answered.
type ReachabilityProber struct {
	visitor *visitor
}

var _ osint.ReachabilityProbe = (*ReachabilityProber)(nil)

// NewReachabilityProber builds a prober. A nil transport gets a dedicated one.
func NewReachabilityProber(cfg probe.Config, transport http.RoundTripper, logger *zap.Logger) *ReachabilityProber {
	return &ReachabilityProber{visitor: newVisitor(cfg, transport, logger)}
}

// CheckReachability implements osint.ReachabilityProbe. Non-2xx statuses are
// observations, only transport failures end up in Error.
func (p *ReachabilityProber) CheckReachability(ctx context.Context, target *url.URL) osint.ReachabilityObservation {
	pg, err := p.visitor.visit(ctx, target.String())
	if err != nil {
		return osint.ReachabilityObservation{
			Reachable:      false,
			ElapsedSeconds: pg.elapsed.Seconds(),
			Error:          err.Error(),
		}
	}
	return osint.ReachabilityObservation{
		HTTPStatus:     osint.Int(pg.status),
		Reachable:      true,
		RequiresAuth:   pg.status == http.StatusUnauthorized || pg.status == http.StatusForbidden,
		Redirected:     pg.redirected,
		FinalURL:       pg.finalURL,
		ElapsedSeconds: pg.elapsed.Seconds(),
	}
}
