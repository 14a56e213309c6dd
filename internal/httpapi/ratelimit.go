package httpapi

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// clientLimiter hands out one token bucket per caller. Idle entries are
// swept on access once ttl has passed since the last sweep.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*limiterEntry
	r         rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
}

func newClientLimiter(rps float64, burst int, ttl time.Duration) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &clientLimiter{
		clients:   make(map[string]*limiterEntry),
		r:         rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
	}
}

func (cl *clientLimiter) get(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	if now.Sub(cl.lastSweep) > cl.ttl {
		for k, c := range cl.clients {
			if now.Sub(c.seen) > cl.ttl {
				delete(cl.clients, k)
			}
		}
		cl.lastSweep = now
	}

	if c, ok := cl.clients[key]; ok {
		c.seen = now
		return c.lim
	}
	l := rate.NewLimiter(cl.r, cl.burst)
	cl.clients[key] = &limiterEntry{lim: l, seen: now}
	return l
}

// rateLimit keys on the caller identity, falling back to the remote address.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := identityFrom(r.Context()).UserID
		if key == "" {
			key = r.RemoteAddr
		}

		if !s.limiter.get(key).Allow() {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", s.limiter.burst))
			w.Header().Set("Retry-After", "5")
			s.logger.Warn("rate limit exceeded",
				zap.String("source", key),
				zap.String("path", r.URL.Path),
			)
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
