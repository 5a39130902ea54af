package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused per-client limiter is kept.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// ipRateLimiter keeps one token bucket per client address. Idle buckets are pruned on write.
type ipRateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*clientLimiter
	lastPrune time.Time
	now       func() time.Time
}

// newIPRateLimiter allows perMinute requests per client. perMinute <= 0 disables limiting.
func newIPRateLimiter(perMinute int, now func() time.Time) *ipRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &ipRateLimiter{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		clients: make(map[string]*clientLimiter),
		now:     now,
	}
}

func (l *ipRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > limiterIdleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastAccess) > limiterIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastPrune = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastAccess = now
	return c.limiter.AllowN(now, 1)
}

func (l *ipRateLimiter) retryAfter() int {
	secs := int(math.Ceil(1.0 / float64(l.limit)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RateLimitMiddleware rejects clients that exceed AUTH_RATE_LIMIT with 429.
func (s *Server) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next(w, r)
			return
		}
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(s.limiter.retryAfter()))
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests, try again later")
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
