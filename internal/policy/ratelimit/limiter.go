// Package ratelimit implements a per-host token bucket so repeated analyses of
// one site do not hammer it.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/sourcescope/internal/metrics"
)

// DefaultIdleTTL is how long an unused host bucket is kept.
const DefaultIdleTTL = 10 * time.Minute

// Limiter manages per-host rate limits. Buckets idle for longer than the idle
// TTL are dropped on a later Wait, so the map tracks recent hosts only.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*bucket
	defaultRate  rate.Limit
	defaultBurst int
	idleTTL      time.Duration
	lastSweep    time.Time
	now          func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Config holds rate limiter configuration. A non-positive RPS disables limiting.
type Config struct {
	DefaultRPS   float64
	DefaultBurst int
	// IdleTTL defaults to DefaultIdleTTL when zero.
	IdleTTL time.Duration
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.DefaultRPS)
	if cfg.DefaultRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Limiter{
		limiters:     make(map[string]*bucket),
		defaultRate:  r,
		defaultBurst: burst,
		idleTTL:      ttl,
		now:          time.Now,
	}
}

// Wait blocks until a token is available for host, respecting the context.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	host = strings.ToLower(host)
	if host == "" {
		host = "unknown"
	}
	l.mu.Lock()
	now := l.now()
	l.sweep(now)
	b, exists := l.limiters[host]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(l.defaultRate, l.defaultBurst)}
		l.limiters[host] = b
	}
	b.lastSeen = now
	limiter := b.limiter
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	// Immediate grants are not delays.
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, d)
	}
	return nil
}

// Hosts returns the number of hosts with a bucket.
func (l *Limiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// sweep drops buckets idle past the TTL whose tokens have refilled, since a
// fresh bucket would behave the same. It runs at most once per TTL. Callers
// hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for host, b := range l.limiters {
		if now.Sub(b.lastSeen) < l.idleTTL {
			continue
		}
		if b.limiter.TokensAt(now) < float64(l.defaultBurst) {
			continue
		}
		delete(l.limiters, host)
	}
}
