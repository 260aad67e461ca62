// Package ratelimit implements the process-wide admission gate in front of the
// generation backend: a sliding log of request timestamps that is purged on every
// check and cleared outright once per reset interval.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	DefaultLimit         = 10
	DefaultWindow        = time.Minute
	DefaultResetInterval = time.Hour
)

// ErrRateLimited is wrapped by every *LimitError.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitError reports a rejected admission and how long the caller should wait.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Please wait %d seconds before trying again.", int(e.RetryAfter/time.Second))
}

func (e *LimitError) Unwrap() error { return ErrRateLimited }

// Usage is a read-only view of the window, used by the usage endpoint.
type Usage struct {
	RequestsLastMinute int
	Total              int
	Limit              int
	NextReset          time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithLimit(n int) Option {
	return func(l *Limiter) { l.limit = n }
}

func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

func WithResetInterval(d time.Duration) Option {
	return func(l *Limiter) { l.resetInterval = d }
}

type Limiter struct {
	mu            sync.Mutex
	now           func() time.Time
	limit         int
	window        time.Duration
	resetInterval time.Duration

	requests  []time.Time
	lastReset time.Time
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		now:           time.Now,
		limit:         DefaultLimit,
		window:        DefaultWindow,
		resetInterval: DefaultResetInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastReset = l.now()
	return l
}

// Admit records a request or rejects it with a *LimitError.
func (l *Limiter) Admit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastReset) > l.resetInterval {
		l.requests = l.requests[:0]
		l.lastReset = now
	}
	l.purgeLocked(now)

	if len(l.requests) >= l.limit {
		// requests is append-only in time order, so the head is the oldest
		wait := l.requests[0].Add(l.window).Sub(now)
		secs := math.Ceil(wait.Seconds())
		return &LimitError{RetryAfter: time.Duration(secs) * time.Second}
	}

	l.requests = append(l.requests, now)
	return nil
}

func (l *Limiter) purgeLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.requests) && !l.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.requests = append(l.requests[:0], l.requests[i:]...)
	}
}

// Snapshot does not mutate the window.
func (l *Limiter) Snapshot() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	recent := 0
	for _, t := range l.requests {
		if t.After(cutoff) {
			recent++
		}
	}
	return Usage{
		RequestsLastMinute: recent,
		Total:              len(l.requests),
		Limit:              l.limit,
		NextReset:          l.lastReset.Add(l.resetInterval),
	}
}
