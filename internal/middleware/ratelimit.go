package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lottoml/lotto-engine/internal/errs"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map between cleanups
const maxTrackedClients = 10000

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	r := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		r = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler returns the gin middleware
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !rl.getLimiter(key).Allow() {
			slog.Warn("Rate limit exceeded", "client", key, "path", c.Request.URL.Path)
			c.Header("Retry-After", "1")
			abortWithError(c, http.StatusTooManyRequests, string(errs.KindRateLimited),
				"Too many requests", "rate limit exceeded, retry later")
			return
		}
		c.Next()
	}
}

// Cleanup drops every limiter once the map grows past maxTrackedClients
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > maxTrackedClients {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanup runs Cleanup every interval until stop is closed
func (rl *RateLimiter) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}
