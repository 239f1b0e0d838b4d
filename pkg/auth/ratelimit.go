package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether a request from the given identity may
// proceed. Implementations return ErrTooManyRequests to reject.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// TierConfig holds the limit settings for one service tier.
type TierConfig struct {
	RequestsPerMinute int
}

// InProcessLimiter is an in-memory fixed-window limiter keyed by subject
// and tier. It is intended for single-instance deployments; a distributed
// setup needs a shared store instead.
type InProcessLimiter struct {
	tiers      map[string]TierConfig
	defaultRPM int

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

// NewInProcessLimiter creates a limiter with per-tier limits. Identities
// whose tier has no entry fall back to defaultRPM; a resolved limit of
// zero or less disables limiting for that tier.
func NewInProcessLimiter(tiers map[string]TierConfig, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		windows:    make(map[string]*window),
	}
}

// Allow counts the request against the identity's current minute window
// and returns ErrTooManyRequests once the tier limit is exceeded.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := identity.ServiceTier
	if tier == "" {
		tier = "default"
	}

	rpm := l.defaultRPM
	if tc, ok := l.tiers[tier]; ok {
		rpm = tc.RequestsPerMinute
	}
	if rpm <= 0 {
		return nil
	}

	key := identity.Subject + ":" + tier
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= time.Minute {
		l.windows[key] = &window{start: now, count: 1}
		l.prune(now)
		return nil
	}

	w.count++
	if w.count > rpm {
		return ErrTooManyRequests
	}
	return nil
}

// prune drops windows that expired more than a minute ago so the map does
// not grow with one entry per subject forever. Called with mu held.
func (l *InProcessLimiter) prune(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*time.Minute {
			delete(l.windows, key)
		}
	}
}
