package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source. (default: time.Now)
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithSessionTimeout sets how long a session lasts after an exchange. (default: 8h)
func WithSessionTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.sessionTimeout = d
	}
}

// WithLookahead sets how long before expiry a session is treated as expired. (default: 1m)
func WithLookahead(d time.Duration) Option {
	return func(m *Manager) {
		m.lookahead = d
	}
}

// WithLock sets the lock held by every operation that writes the store. Managers for the
// same session must share it, see Locks. (default: a lock private to the Manager)
func WithLock(l sync.Locker) Option {
	return func(m *Manager) {
		m.inflight = l
	}
}

// WithMetrics records transitions and exchanges in metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithStateChange sets a hook called after every transition.
func WithStateChange(fn func(ctx context.Context, from, to State)) Option {
	return func(m *Manager) {
		m.onStateChange = fn
	}
}
