// Package ratelimit implements a fixed-window request limiter keyed by
// client identity and route. Windows are tracked in memory and swept
// periodically once they lapse.
package ratelimit

import (
	"sync"
	"time"
)

// Config describes one limiting policy: how many requests are allowed per
// fixed window of the given duration.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Preset policies, ordered from most to least restrictive.
var (
	// Strict protects credential endpoints: 5 attempts per 15 minutes.
	Strict = Config{Window: 15 * time.Minute, MaxRequests: 5}

	// Moderate covers mutating endpoints: 5 requests per minute.
	Moderate = Config{Window: time.Minute, MaxRequests: 5}

	// Lenient covers read endpoints: 30 requests per minute.
	Lenient = Config{Window: time.Minute, MaxRequests: 30}
)

// Result is the outcome of a single Check call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter reports how long the caller should wait before retrying,
// rounded up to a whole second and never below one second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	if rem := d % time.Second; rem != 0 {
		d += time.Second - rem
	}
	return d
}

type windowKey struct {
	key   string
	route string
}

type window struct {
	count   int
	resetAt time.Time
}

// Store tracks request counts per (key, route) pair. A single Store is
// shared by all routes of a server; each route passes its own Config so
// distinct policies never interfere.
type Store struct {
	mu      sync.Mutex
	windows map[windowKey]*window

	now           func() time.Time
	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Only intended for tests.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithSweepInterval overrides how often lapsed windows are purged.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// NewStore constructs a Store and starts its background sweeper. Callers
// must Close the Store when done with it.
func NewStore(opts ...Option) *Store {
	s := &Store{
		windows:       make(map[windowKey]*window),
		now:           time.Now,
		sweepInterval: time.Minute,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop()
	return s
}

// Check records one request attempt against the policy and reports whether
// it is allowed. The attempt is counted before the limit is evaluated, so
// rejected requests still consume the window: a client that keeps hammering
// a closed window never sneaks a request through at the boundary.
func (s *Store) Check(key, route string, cfg Config) Result {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	wk := windowKey{key: key, route: route}
	w, ok := s.windows[wk]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(cfg.Window)}
		s.windows[wk] = w
	}
	w.count++

	remaining := cfg.MaxRequests - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   w.count <= cfg.MaxRequests,
		Limit:     cfg.MaxRequests,
		Remaining: remaining,
		ResetAt:   w.resetAt,
	}
}

// Len reports the number of tracked windows. Only intended for tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Close stops the background sweeper. Safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops windows whose reset time has passed. A lapsed window would be
// replaced on its next Check anyway; sweeping just keeps the map from
// growing with one-off clients. Live windows are never touched, whatever
// their configured duration.
func (s *Store) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, k)
		}
	}
}
