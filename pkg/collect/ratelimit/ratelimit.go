// Package ratelimit provides per-host token-bucket rate limiting for
// ossuary's collectors, grounded on the rate.Limiter construction in
// SharanRP-gh-notif's internal/github/client.go.
package ratelimit

import (
	"context"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// Registry hands out one token-bucket limiter per host, created lazily
// with the rate configured for that host.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	defaultRPS float64
}

// NewRegistry returns a Registry that creates limiters at defaultRPS for
// any host not explicitly configured via WithHost.
func NewRegistry(defaultRPS float64) *Registry {
	return &Registry{
		limiters:   make(map[string]*rate.Limiter),
		defaultRPS: defaultRPS,
	}
}

// WithHost pins a specific requests-per-second rate for host, overriding
// the registry default. Burst is set to the ceiling of rps, minimum 1.
func (r *Registry) WithHost(host string, rps float64) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[host] = newLimiter(rps)
	return r
}

func newLimiter(rps float64) *rate.Limiter {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Limiter returns the token-bucket limiter for host, creating one at the
// registry's default rate on first use.
func (r *Registry) Limiter(host string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[host]
	if !ok {
		l = newLimiter(r.defaultRPS)
		r.limiters[host] = l
	}
	return l
}

// Wait blocks until host's bucket has a token available or ctx is
// cancelled.
func (r *Registry) Wait(ctx context.Context, host string) error {
	return r.Limiter(host).Wait(ctx)
}
