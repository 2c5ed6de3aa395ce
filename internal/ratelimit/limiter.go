// Package ratelimit bounds request volume per caller with a sliding window
// counted over the trailing interval ending now. Throttling is a continuous
// function of time: a caller becomes admissible again as old timestamps fall
// out of the window, with no explicit release step.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/Gor0d/FisioHUB-sub000/internal/clock"
	"github.com/Gor0d/FisioHUB-sub000/internal/config"
)

var ErrUnknownLimiter = errors.New("unknown_limiter")

// Limiter enforces one named max/window pair.
type Limiter struct {
	name   string
	max    int
	window time.Duration
	clk    clock.Clock
	store  Store
}

func NewLimiter(name string, max int, window time.Duration, clk clock.Clock, store Store) *Limiter {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{name: name, max: max, window: window, clk: clk, store: store}
}

func (l *Limiter) Name() string { return l.name }

// Allow admits or rejects one request for the caller key.
func (l *Limiter) Allow(key string) Decision {
	if strings.TrimSpace(key) == "" {
		return Decision{Allowed: false, ResetAfter: l.window}
	}
	return l.store.Take(key, l.clk.Now(), l.max, l.window)
}

func (l *Limiter) sweep(now time.Time) int {
	return l.store.Sweep(now, l.window)
}

// Registry holds the named limiters built from configuration. Each limiter
// owns its own store so sweeping one route never contends with another.
type Registry struct {
	limiters map[string]*Limiter
}

func NewRegistry(rules config.RateLimitMap, clk clock.Clock) *Registry {
	limiters := make(map[string]*Limiter, len(rules))
	for name, rule := range rules {
		limiters[name] = NewLimiter(name, rule.Max, rule.Window, clk, NewMemoryStore())
	}
	return &Registry{limiters: limiters}
}

// Get returns the named limiter.
func (r *Registry) Get(name string) (*Limiter, error) {
	limiter, ok := r.limiters[name]
	if !ok {
		return nil, ErrUnknownLimiter
	}
	return limiter, nil
}

// SweepAll purges idle buckets across every limiter.
func (r *Registry) SweepAll(now time.Time) int {
	total := 0
	for _, limiter := range r.limiters {
		total += limiter.sweep(now)
	}
	return total
}

// CallerKey combines the network origin with a client fingerprint so a
// single rotating IP cannot trivially reset its budget, while users behind
// a shared NAT with distinct fingerprints keep independent budgets.
func CallerKey(clientIP, fingerprint string) string {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return clientIP
	}
	sum := sha256.Sum256([]byte(fingerprint))
	return clientIP + ":" + hex.EncodeToString(sum[:8])
}
