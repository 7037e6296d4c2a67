package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/osa911/datacap/internal/api/dto/common"
)

// RateLimitConfig defines configuration for the rate limiter
type RateLimitConfig struct {
	// Requests per second
	RPS int
	// Burst size (number of requests that can be made in a single burst)
	Burst int
}

// RateLimit applies one shared token bucket to every request
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(config.RPS), config.Burst)

	return func(c *gin.Context) {
		now := time.Now()
		if !limiter.AllowN(now, 1) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				common.NewErrorResponse(common.ErrCodeTooManyRequests, "Rate limit exceeded. Please try again later.", nil))
			return
		}

		tokens := limiter.TokensAt(now)
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.RPS))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(tokens)))

		// Time until the bucket holds one more whole token
		var wait time.Duration
		if tokens < float64(config.Burst) && config.RPS > 0 {
			missing := 1 - (tokens - float64(int(tokens)))
			wait = time.Duration(missing / float64(config.RPS) * float64(time.Second))
		}
		c.Header("X-RateLimit-Reset", now.Add(wait).UTC().Format(time.RFC1123))

		c.Next()
	}
}
