package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/api/dto/common"
	"github.com/osa911/datacap/internal/logging"
)

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger := logging.GetGlobalLogger()
				logger.Error("[PANIC] %s | %s | %s | %v\n%s",
					c.Request.Method,
					c.Request.URL.Path,
					c.GetString(RequestIDKey),
					err,
					debug.Stack(),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError,
					common.NewErrorResponse(common.ErrCodeInternalServer, "Internal server error", nil))
			}
		}()

		c.Next()
	}
}
