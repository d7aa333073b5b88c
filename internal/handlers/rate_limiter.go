package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/httpx"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/requestctx"
)

const limiterIdleTTL = 10 * time.Minute

type rateLimiter interface {
	Allow(key string) bool
}

// clientRateLimiter keeps one token bucket per client key.
type clientRateLimiter struct {
	limit rate.Limit
	burst int
	clock func() time.Time

	mu        sync.Mutex
	store     map[string]*clientBucket
	lastPrune time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newClientRateLimiter returns nil when perMinute is not positive, which disables limiting.
func newClientRateLimiter(perMinute, burst int, clock func() time.Time) rateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	if clock == nil {
		clock = time.Now
	}
	return &clientRateLimiter{
		limit: rate.Limit(float64(perMinute) / 60),
		burst: burst,
		clock: clock,
		store: make(map[string]*clientBucket),
	}
}

func (l *clientRateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.store[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.store[key] = bucket
	}
	bucket.lastSeen = now
	allowed := bucket.limiter.AllowN(now, 1)
	l.pruneIdleLocked(now)
	return allowed
}

func (l *clientRateLimiter) pruneIdleLocked(now time.Time) {
	if now.Sub(l.lastPrune) < limiterIdleTTL {
		return
	}
	l.lastPrune = now
	for key, bucket := range l.store {
		if now.Sub(bucket.lastSeen) > limiterIdleTTL {
			delete(l.store, key)
		}
	}
}

// rateLimitMiddleware rejects requests over the per-client budget with 429. Clients are keyed
// by the IP the request logger stored on the context, falling back to RemoteAddr.
func rateLimitMiddleware(limiter rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestctx.ClientIP(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}
			if !limiter.Allow(key) {
				httpx.WriteError(r.Context(), w, httpx.RateLimited(fmt.Sprintf("too many requests for %s", r.URL.Path), time.Minute))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
