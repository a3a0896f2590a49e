// Package ratelimit enforces a minimum interval between expensive
// operations per key, such as analysis triggers per user.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is the subset shared by the in-memory and Redis implementations.
type Limiter interface {
	Allow(key string) bool
}

// MemoryLimiter tracks the last permitted trigger per key and enforces a
// minimum interval between them. A zero interval permits everything.
type MemoryLimiter struct {
	mu          sync.Mutex
	last        map[string]time.Time
	minInterval time.Duration
}

// New creates an in-memory limiter with the given cooldown between triggers.
func New(minInterval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		last:        make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow reports whether a trigger for key may proceed now. A denied trigger
// does not push the window forward.
func (l *MemoryLimiter) Allow(key string) bool {
	if l.minInterval <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	last, ok := l.last[key]
	if ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.last[key] = now
	return true
}

// Reset clears the window for one key.
func (l *MemoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, key)
}

var _ Limiter = (*MemoryLimiter)(nil)
