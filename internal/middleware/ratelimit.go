package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/database"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/logger"
	"golang.org/x/time/rate"
)

// IPRateLimiter manages rate limiters for each client key (IP or user)
type IPRateLimiter struct {
	ips   map[string]*rateLimiterEntry
	mu    sync.Mutex
	r     rate.Limit
	burst int
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates a new IP-based rate limiter
// r = requests per second, burst = max burst size
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	rl := &IPRateLimiter{
		ips:   make(map[string]*rateLimiterEntry),
		r:     r,
		burst: burst,
	}

	// Cleanup old entries every minute
	go rl.cleanup()

	return rl
}

func (rl *IPRateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, entry := range rl.ips {
			if time.Since(entry.lastSeen) > 3*time.Minute {
				delete(rl.ips, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// GetLimiter returns the rate limiter for the given key
func (rl *IPRateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.ips[key]
	if !exists {
		limiter := rate.NewLimiter(rl.r, rl.burst)
		rl.ips[key] = &rateLimiterEntry{
			limiter:  limiter,
			lastSeen: time.Now(),
		}
		return limiter
	}

	entry.lastSeen = time.Now()
	return entry.limiter
}

// Pre-configured rate limiters for different endpoints
var (
	// Code execution: 60 requests per minute (1/sec)
	ExecuteLimiter = NewIPRateLimiter(rate.Limit(1.0), 5)

	// General API: 600 requests per minute (10/sec)
	GeneralLimiter = NewIPRateLimiter(rate.Limit(10.0), 50)

	// Contest submission: 20 per minute
	SubmitLimiter = NewIPRateLimiter(rate.Limit(20.0/60.0), 5)
)

func rateLimitKey(c *gin.Context) string {
	if userID := c.GetString("userId"); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware creates a rate limiting middleware with a custom limiter.
// Authenticated callers are limited per user, everyone else per IP.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)
		if !limiter.GetLimiter(key).Allow() {
			logger.Warn().
				Str("key", key).
				Str("path", c.Request.URL.Path).
				Msg("Rate limit exceeded")

			abortWithError(c, apperrors.ErrRateLimit)
			return
		}

		c.Next()
	}
}

// ExecuteRateLimit is for code execution endpoints
func ExecuteRateLimit() gin.HandlerFunc {
	return RateLimitMiddleware(ExecuteLimiter)
}

// GeneralRateLimit is for general API endpoints
func GeneralRateLimit() gin.HandlerFunc {
	return RateLimitMiddleware(GeneralLimiter)
}

// SubmitRateLimit is for contest submission endpoints
func SubmitRateLimit() gin.HandlerFunc {
	return RateLimitMiddleware(SubmitLimiter)
}

// QuotaPerMinute caps an action per user across all server instances using
// Redis counters. Without Redis it is a no-op and the in-process limiters apply.
func QuotaPerMinute(action string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		allowed, err := database.CheckRateLimit(action+":"+rateLimitKey(c), limit, time.Minute)
		if err != nil {
			logger.Warn().Err(err).Str("action", action).Msg("Quota check failed, allowing request")
			c.Next()
			return
		}
		if !allowed {
			abortWithError(c, apperrors.ErrRateLimit)
			return
		}
		c.Next()
	}
}
