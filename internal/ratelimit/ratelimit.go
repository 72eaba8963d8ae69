// Package ratelimit provides the process-local, per-bucket request counters used by the
// admission gate. Counters live only in memory: each server instance enforces its limits
// independently and state does not survive restarts.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Bucket is a named rate-limit category with its own ceiling
type Bucket string

const (
	BucketAuth   Bucket = "auth"
	BucketSearch Bucket = "search"
	BucketRead   Bucket = "read"
	BucketWrite  Bucket = "write"
)

// Config configures the limiter
type Config struct {
	// Limits is the max requests per Window for each bucket
	Limits map[Bucket]int
	// Window is the counting window length
	Window time.Duration
	// BlockDuration is how long a key stays blocked after exceeding its ceiling
	BlockDuration time.Duration
	// SweepInterval is the minimum gap between opportunistic garbage collections
	SweepInterval time.Duration
}

// DefaultConfig returns the production ceilings
func DefaultConfig() Config {
	return Config{
		Limits: map[Bucket]int{
			BucketAuth:   20,
			BucketSearch: 45,
			BucketRead:   120,
			BucketWrite:  40,
		},
		Window:        time.Minute,
		BlockDuration: 5 * time.Minute,
		SweepInterval: 30 * time.Second,
	}
}

// Decision is the outcome of a single Hit
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

type counter struct {
	count           int
	windowStartedAt time.Time
	blockedUntil    time.Time
	lastSeenAt      time.Time
}

func (c *counter) blocked(now time.Time) bool {
	return now.Before(c.blockedUntil)
}

// Limiter tracks request counts by bucket and client key
type Limiter struct {
	cfg       Config
	clock     clockwork.Clock
	mu        sync.Mutex
	counters  map[string]*counter
	lastSweep time.Time
}

// New creates a limiter. A nil clock uses the real clock.
func New(cfg Config, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{
		cfg:       cfg,
		clock:     clock,
		counters:  make(map[string]*counter),
		lastSweep: clock.Now(),
	}
}

// Key builds the counter key for a bucket and client
func Key(bucket Bucket, clientIP string) string {
	return string(bucket) + ":" + clientIP
}

// Hit counts one request for clientIP in bucket and reports whether it may proceed.
// Requests arriving while blocked are rejected without being counted.
func (l *Limiter) Hit(bucket Bucket, clientIP string) Decision {
	limit := l.cfg.Limits[bucket]
	key := Key(bucket, clientIP)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.maybeSweep(now)

	c, ok := l.counters[key]
	if !ok {
		c = &counter{windowStartedAt: now}
		l.counters[key] = c
	}
	c.lastSeenAt = now

	if c.blocked(now) {
		return Decision{Allowed: false, Count: c.count, Limit: limit, RetryAfter: c.blockedUntil.Sub(now)}
	}

	if now.Sub(c.windowStartedAt) >= l.cfg.Window {
		c.count = 0
		c.windowStartedAt = now
		c.blockedUntil = time.Time{}
	}

	c.count++
	if c.count > limit {
		c.blockedUntil = now.Add(l.cfg.BlockDuration)
		return Decision{Allowed: false, Count: c.count, Limit: limit, RetryAfter: l.cfg.BlockDuration}
	}

	return Decision{Allowed: true, Count: c.count, Limit: limit}
}

// maybeSweep drops idle, unblocked counters at most once per SweepInterval. Caller holds mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.SweepInterval {
		return
	}
	l.lastSweep = now

	staleAfter := 2 * max(l.cfg.Window, l.cfg.BlockDuration)
	for key, c := range l.counters {
		if c.blocked(now) {
			continue
		}
		if now.Sub(c.lastSeenAt) > staleAfter {
			delete(l.counters, key)
		}
	}
}

// Len returns the number of tracked counters
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}
