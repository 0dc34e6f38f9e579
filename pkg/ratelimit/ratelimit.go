// Package ratelimit throttles publish traffic per publisher namespace.
// The local limiter serves single-node deployments; the Redis limiter
// shares the budget across replicas.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter answers whether a publisher may submit another package now.
type Limiter interface {
	Allow(ctx context.Context, namespace string) (bool, error)
}

// Policy configures a publisher's budget.
type Policy struct {
	// PerMinute is the sustained number of publishes per minute.
	PerMinute int
	// Burst is the short-term allowance above the sustained rate.
	Burst int
}

// DefaultPolicy throttles a namespace to ten publishes per minute.
var DefaultPolicy = Policy{PerMinute: 10, Burst: 5}

type namespaceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps one token bucket per publisher namespace in
// process memory. Idle buckets are evicted after the cleanup interval.
type LocalLimiter struct {
	mu         sync.Mutex
	policy     Policy
	namespaces map[string]*namespaceLimiter
}

func NewLocalLimiter(policy Policy) *LocalLimiter {
	if policy.PerMinute <= 0 {
		policy = DefaultPolicy
	}
	l := &LocalLimiter{
		policy:     policy,
		namespaces: make(map[string]*namespaceLimiter),
	}
	go l.cleanupLoop()
	return l
}

func (l *LocalLimiter) Allow(ctx context.Context, namespace string) (bool, error) {
	l.mu.Lock()
	entry, ok := l.namespaces[namespace]
	if !ok {
		entry = &namespaceLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(l.policy.PerMinute)/60.0), l.policy.Burst),
		}
		l.namespaces[namespace] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow(), nil
}

func (l *LocalLimiter) cleanupLoop() {
	for {
		time.Sleep(time.Minute)
		l.mu.Lock()
		for namespace, entry := range l.namespaces {
			if time.Since(entry.lastSeen) > 3*time.Minute {
				delete(l.namespaces, namespace)
			}
		}
		l.mu.Unlock()
	}
}
