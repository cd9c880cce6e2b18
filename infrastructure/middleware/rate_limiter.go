package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultIdleTTL is how long an idle client's bucket is kept.
const defaultIdleTTL = 10 * time.Minute

// ClientLimiter enforces a token bucket per client key, typically the
// remote address. The limit sets requests per second, while burst allows
// temporary spikes above the sustained rate. Buckets of clients that stay
// idle longer than the TTL are discarded.
type ClientLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a limiter allowing requestsPerSecond sustained
// and burst at once per client. A non-positive rate disables limiting.
func NewClientLimiter(requestsPerSecond float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		ttl:     defaultIdleTTL,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

// Enabled reports whether the limiter restricts anything.
func (l *ClientLimiter) Enabled() bool { return l != nil && l.limit > 0 }

// Allow reports whether the client may make a request now, consuming a
// token if so.
func (l *ClientLimiter) Allow(client string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	bucket, ok := l.clients[client]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

// sweep drops idle buckets at most once per TTL. Callers hold l.mu.
func (l *ClientLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.ttl {
		return
	}
	l.lastSweep = now
	for key, bucket := range l.clients {
		if now.Sub(bucket.lastSeen) > l.ttl {
			delete(l.clients, key)
		}
	}
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
