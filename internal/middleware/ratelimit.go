package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// IPRateLimiter is a fixed-window request limiter keyed by client IP. It
// guards the whole API surface; the per-phone initiation cooldown lives in
// the payment service.
type IPRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	size    time.Duration
}

type window struct {
	start time.Time
	count int
}

func NewIPRateLimiter(limit int, size time.Duration) *IPRateLimiter {
	l := &IPRateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		size:    size,
	}
	go l.cleanup()
	return l
}

func (l *IPRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.size {
		l.windows[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

func (l *IPRateLimiter) cleanup() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-l.size)
		for k, w := range l.windows {
			if w.start.Before(cutoff) {
				delete(l.windows, k)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit returns a middleware that limits by client IP.
func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
