package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client key. Buckets idle for longer
// than the idle window are evicted on the next Allow.
type Limiter struct {
	mu     sync.Mutex
	m      map[string]*entry
	rps    rate.Limit
	burst  int
	idle   time.Duration
	lastGC time.Time
	now    func() time.Time
}

// New creates a limiter granting rps requests per second with the given burst.
func New(rps float64, burst int, idle time.Duration) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &Limiter{
		m:     make(map[string]*entry),
		rps:   rate.Limit(rps),
		burst: burst,
		idle:  idle,
		now:   time.Now,
	}
}

// Allow reports whether one request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = e
	}
	e.lastSeen = now
	if now.Sub(l.lastGC) >= l.idle {
		l.evict(now)
	}
	lim := e.limiter
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

func (l *Limiter) evict(now time.Time) {
	for k, e := range l.m {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.m, k)
		}
	}
	l.lastGC = now
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
