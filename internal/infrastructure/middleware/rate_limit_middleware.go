package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"reviewsync/pkg/config"
	"reviewsync/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiters idle longer than this are pruned so a churn of one-off
// clients does not pin memory.
const limiterStaleAfter = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters hands out one token bucket per client IP.
type ipLimiters struct {
	mu    sync.Mutex
	seen  map[string]*ipLimiter
	rate  rate.Limit
	burst int
}

func newIPLimiters(r rate.Limit, burst int) *ipLimiters {
	return &ipLimiters{
		seen:  make(map[string]*ipLimiter),
		rate:  r,
		burst: burst,
	}
}

func (s *ipLimiters) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	l, ok := s.seen[ip]
	if !ok {
		if len(s.seen) >= 1024 {
			s.pruneLocked(now)
		}
		l = &ipLimiter{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.seen[ip] = l
	}
	l.lastSeen = now
	return l.limiter
}

func (s *ipLimiters) pruneLocked(now time.Time) {
	for ip, l := range s.seen {
		if now.Sub(l.lastSeen) > limiterStaleAfter {
			delete(s.seen, ip)
		}
	}
}

// clientIP prefers the first X-Forwarded-For hop so replays proxied
// through an ingress are limited per viewer, not per ingress.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if i := strings.IndexByte(xff, ','); i >= 0 {
			first = xff[:i]
		}
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewHTTPRateLimitMiddleware applies per-IP rate limiting plus an
// optional global cap on concurrent requests.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	store := newIPLimiters(
		rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond),
		cfg.RateLimiting.HTTP.Burst,
	)

	var inFlight chan struct{}
	if cfg.RateLimiting.HTTP.MaxConcurrent > 0 {
		inFlight = make(chan struct{}, cfg.RateLimiting.HTTP.MaxConcurrent)
	}

	return func(c *gin.Context) {
		if inFlight != nil {
			select {
			case inFlight <- struct{}{}:
				defer func() { <-inFlight }()
			default:
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "too many concurrent requests",
				})
				return
			}
		}

		if !store.get(clientIP(c.Request)).Allow() {
			limitErr := errors.NewRateLimitError()
			c.AbortWithStatusJSON(limitErr.HTTPStatus, gin.H{
				"error":   string(limitErr.Code),
				"message": limitErr.Message,
			})
			return
		}
		c.Next()
	}
}
