// Package detection gates classifier sampling frequency and announcement admission.
package detection

import (
	"sync/atomic"
	"time"
)

// DefaultInterval is the minimum spacing between sampled frames.
const DefaultInterval = time.Second

// Limiter bounds how often frames reach the classifier. It is independent of
// the lock: sampling continues while a detection is being held.
//
// ShouldSample is owned by the capture worker. Rearm may be called from any
// goroutine.
type Limiter struct {
	interval       time.Duration
	lastAcceptedAt time.Time
	rearmed        atomic.Bool
}

// NewLimiter returns a limiter accepting at most one sample per interval.
// A non-positive interval selects DefaultInterval.
func NewLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Limiter{interval: interval}
}

// ShouldSample reports whether at least one interval has elapsed since the last
// accepted sample, recording now as the new acceptance time when it has.
func (l *Limiter) ShouldSample(now time.Time) bool {
	if l.rearmed.Swap(false) {
		l.lastAcceptedAt = time.Time{}
	}
	if !l.lastAcceptedAt.IsZero() && now.Sub(l.lastAcceptedAt) < l.interval {
		return false
	}
	l.lastAcceptedAt = now
	return true
}

// Rearm makes the next ShouldSample call accept regardless of elapsed time.
// A user reset rearms so the first frame afterwards is classified.
func (l *Limiter) Rearm() {
	l.rearmed.Store(true)
}

// Interval returns the configured sampling interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Lock admits the first detection and suppresses the rest until Reset.
//
// Lock is not safe for concurrent use; the coordination goroutine owns it.
type Lock struct {
	locked bool
}

// Admit returns true and locks when currently unlocked; otherwise false.
func (l *Lock) Admit() bool {
	if l.locked {
		return false
	}
	l.locked = true
	return true
}

// Reset unlocks unconditionally.
func (l *Lock) Reset() {
	l.locked = false
}

// Locked reports the current lock flag.
func (l *Lock) Locked() bool {
	return l.locked
}
