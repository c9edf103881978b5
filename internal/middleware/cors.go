package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods = "POST, OPTIONS"
	corsAllowHeaders = "authorization, content-type, apikey, x-client-info"
)

// CORS applies permissive cross-origin headers and answers pre-flight
// requests with 204. The service is called from browser-based admin portals
// on arbitrary origins, so any origin is allowed.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", corsAllowMethods)
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
