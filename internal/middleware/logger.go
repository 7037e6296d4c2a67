package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/logging"
)

// RequestObserver receives one observation per completed request
type RequestObserver interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
}

// Logger logs every request and reports it to observer when one is given.
// Paths are recorded by route template so ids do not explode label cardinality.
func Logger(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		logging.GetGlobalLogger().LogHTTPRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.GetString(RequestIDKey),
			status,
			c.Writer.Size(),
			latency.String(),
		)

		if observer != nil {
			observer.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(status), latency)
		}
	}
}
