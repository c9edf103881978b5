package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/woopsyyy/portal-credsvc/pkg/logger"
)

// Logger writes one structured access-log line per request. Probe endpoints
// are skipped to keep the log focused on administrative traffic, and the
// caller id resolved by AdminAuth is attached when present.
func Logger() gin.HandlerFunc {
	skip := map[string]struct{}{
		"/health":  {},
		"/metrics": {},
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		if _, ok := skip[path]; ok {
			return
		}

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if callerID, ok := c.Get(CtxCallerIDKey); ok {
			fields = append(fields, zap.Any("caller_id", callerID))
		}

		logger.WithModule("http").Info("request", fields...)
	}
}
