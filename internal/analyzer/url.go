package analyzer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrEmptyURL is returned when no URL was supplied.
	ErrEmptyURL = errors.New("url is required")
	// ErrMalformedURL is returned when the URL cannot be analyzed.
	ErrMalformedURL = errors.New("malformed url")
)

// NormalizeURL trims raw, defaults the scheme to https and validates the
// result. Only http and https targets with a host are accepted.
func NormalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	// Anything carrying its own scheme is validated as is.
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformedURL)
	}
	if strings.ContainsAny(u.Hostname(), " \t") {
		return nil, fmt.Errorf("%w: invalid host %q", ErrMalformedURL, u.Hostname())
	}
	return u, nil
}
