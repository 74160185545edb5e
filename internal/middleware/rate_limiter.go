package middleware

import (
	"net/http"
	"sync"
	"time"

	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter throttles clients by IP with a token bucket each.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	ticker   *time.Ticker
	done     chan struct{}
}

// NewRateLimiter allows perSecond requests per IP with the given burst. Idle
// buckets are dropped every cleanupEvery.
func NewRateLimiter(perSecond float64, burst int, cleanupEvery time.Duration) *RateLimiter {
	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		ticker:   time.NewTicker(cleanupEvery),
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.ticker.C:
			rl.mu.Lock()
			rl.limiters = make(map[string]*rate.Limiter)
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.ticker.Stop()
	close(rl.done)
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// Middleware rejects requests over the client's budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			GetLoggerFromContext(c).Warn("Rate limit exceeded", map[string]interface{}{
				"ip":   c.ClientIP(),
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusTooManyRequests, apperrors.RateLimitExceeded, "Too many requests, please slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}
