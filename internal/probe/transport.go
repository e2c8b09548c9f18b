// Package probe holds the HTTP plumbing shared by the observation collectors.
package probe

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent mimics a desktop browser so sites answer probes the way
// they answer readers.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// MaxRedirects caps redirect chains followed by any probe.
const MaxRedirects = 10

// Config controls probe HTTP behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// InsecureSkipVerify disables certificate checks for this transport only.
	InsecureSkipVerify bool
}

// UserAgentOrDefault returns the configured agent or DefaultUserAgent.
func (c Config) UserAgentOrDefault() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

// TimeoutOr returns the configured timeout, or def when unset.
func (c Config) TimeoutOr(def time.Duration) time.Duration {
	if c.Timeout <= 0 {
		return def
	}
	return c.Timeout
}

// NewTransport builds a pooled transport dedicated to probes.
func NewTransport(cfg Config) *http.Transport {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via http.insecure_skip_verify
	}
	return t
}

// NewClient returns an http.Client over rt with the probe timeout and
// redirect cap applied. A nil rt gets a fresh NewTransport.
func NewClient(cfg Config, rt http.RoundTripper, def time.Duration) *http.Client {
	if rt == nil {
		rt = NewTransport(cfg)
	}
	return &http.Client{
		Transport: rt,
		Timeout:   cfg.TimeoutOr(def),
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > MaxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}
