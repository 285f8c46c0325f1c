package middleware

import (
	"sync"
	"time"

	"batball/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IPRateLimiter держит отдельный token bucket на каждый IP
type IPRateLimiter struct {
	ips     map[string]*ipEntry
	mu      sync.Mutex
	r       rate.Limit
	b       int
	idleTTL time.Duration
	now     func() time.Time
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter gives every IP a token bucket of max requests that refills
// evenly over the window (one token every window/max). After the first burst
// a client can get up to max+max*(span/window) requests in any span, so this
// is a smoothed limit rather than a fixed counter reset at window bounds.
func NewIPRateLimiter(max int, window time.Duration) *IPRateLimiter {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &IPRateLimiter{
		ips:     make(map[string]*ipEntry),
		r:       rate.Limit(float64(max) / window.Seconds()),
		b:       max,
		idleTTL: window,
		now:     time.Now,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	entry, exists := i.ips[ip]
	if !exists {
		entry = &ipEntry{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Allow takes one token from ip's bucket at the limiter's clock.
func (i *IPRateLimiter) Allow(ip string) bool {
	return i.GetLimiter(ip).AllowN(i.now(), 1)
}

// Cleanup drops limiters idle for longer than the window.
func (i *IPRateLimiter) Cleanup() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-i.idleTTL)
	removed := 0
	for ip, entry := range i.ips {
		if entry.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			removed++
		}
	}
	return removed
}

func (i *IPRateLimiter) Size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}

// IPRateLimitMiddleware отдает 429 в общем конверте; health не лимитируется
func IPRateLimitMiddleware(ipLimiter *IPRateLimiter, logger *zap.Logger, exempt ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(exempt))
	for _, path := range exempt {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		if !ipLimiter.Allow(clientIP) {
			logger.Warn("rate limit blocked",
				zap.String("ip", clientIP),
				zap.String("path", c.Request.URL.Path),
			)
			Fail(c, apperr.New(apperr.KindRateLimited, "Too many requests, please try again later"))
			return
		}

		c.Next()
	}
}
