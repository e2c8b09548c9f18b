// Package registration implements the domain registration probe over WHOIS.
package registration

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/osint"
)

// DefaultTimeout bounds one WHOIS lookup.
const DefaultTimeout = 10 * time.Second

// ErrNoDomain is recorded when the target has no usable host.
var ErrNoDomain = errors.New("no domain in target")

var privacyMarkers = []string{
	"privacy", "redacted", "proxy", "protected", "withheld", "whoisguard", "not disclosed",
}

// LookupFunc returns the raw WHOIS record for a domain.
type LookupFunc func(ctx context.Context, domain string) (string, error)

// ParseFunc turns a raw WHOIS record into structured data.
type ParseFunc func(raw string) (whoisparser.WhoisInfo, error)

// Option customizes a Prober.
type Option func(*Prober)

// WithLookup replaces the network lookup.
func WithLookup(fn LookupFunc) Option {
	return func(p *Prober) { p.lookup = fn }
}

// WithParser replaces the record parser.
func WithParser(fn ParseFunc) Option {
	return func(p *Prober) { p.parse = fn }
}

// Prober looks up registration records.
type Prober struct {
	lookup LookupFunc
	parse  ParseFunc
	logger *zap.Logger
}

var _ osint.RegistrationProbe = (*Prober)(nil)

// New builds a Prober backed by likexian/whois.
func New(timeout time.Duration, logger *zap.Logger, opts ...Option) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := whois.NewClient().SetTimeout(timeout)
	p := &Prober{
		lookup: func(ctx context.Context, domain string) (string, error) {
			return lookupWithContext(ctx, client, domain)
		},
		parse:  whoisparser.Parse,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LookupRegistration implements osint.RegistrationProbe.
func (p *Prober) LookupRegistration(ctx context.Context, target *url.URL) osint.RegistrationObservation {
	domain := Domain(target)
	if domain == "" {
		return osint.RegistrationObservation{Error: ErrNoDomain.Error()}
	}
	obs := osint.RegistrationObservation{Domain: domain}

	raw, err := p.lookup(ctx, domain)
	if err != nil {
		p.logger.Debug("whois lookup failed", zap.String("domain", domain), zap.Error(err))
		obs.Error = fmt.Sprintf("whois lookup: %v", err)
		return obs
	}
	info, err := p.parse(raw)
	if err != nil {
		obs.Error = fmt.Sprintf("whois parse: %v", err)
		return obs
	}

	if info.Registrar != nil {
		obs.Registrar = info.Registrar.Name
	}
	if info.Domain != nil {
		obs.CreatedDate = info.Domain.CreatedDate
		obs.ExpirationDate = info.Domain.ExpirationDate
		obs.NameServers = info.Domain.NameServers
	}
	obs.IsPrivate = IsPrivate(info.Registrant)
	return obs
}

// Domain extracts the registrable host: no port, no leading "www.".
func Domain(target *url.URL) string {
	if target == nil {
		return ""
	}
	host := strings.ToLower(strings.TrimSuffix(target.Hostname(), "."))
	return strings.TrimPrefix(host, "www.")
}

// IsPrivate reports whether a registrant hides behind a privacy service.
// A nil registrant yields nil: nothing was published either way.
func IsPrivate(registrant *whoisparser.Contact) *bool {
	if registrant == nil {
		return nil
	}
	fields := strings.ToLower(strings.Join([]string{
		registrant.Name, registrant.Organization, registrant.Email,
	}, " "))
	if strings.TrimSpace(fields) == "" {
		return nil
	}
	for _, marker := range privacyMarkers {
		if strings.Contains(fields, marker) {
			return osint.Bool(true)
		}
	}
	return osint.Bool(false)
}

func lookupWithContext(ctx context.Context, client *whois.Client, domain string) (string, error) {
	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := client.Whois(domain)
		done <- result{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("whois canceled: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("whois query: %w", res.err)
		}
		return res.raw, nil
	}
}
