package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxIdleKeys = 10000

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a per-key token bucket refilled at perMinute tokens per
// minute with a burst of perMinute.
type MemoryLimiter struct {
	mu        sync.Mutex
	perMinute int
	buckets   map[string]*bucket
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		perMinute: perMinute,
		buckets:   make(map[string]*bucket),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if m.perMinute <= 0 {
		return true, nil
	}

	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		if len(m.buckets) >= maxIdleKeys {
			m.prune(now)
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(Window/time.Duration(m.perMinute)), m.perMinute)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// prune drops buckets idle long enough to have refilled completely.
func (m *MemoryLimiter) prune(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.lastSeen) > Window {
			delete(m.buckets, k)
		}
	}
}
