package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/woopsyyy/portal-credsvc/internal/auditctx"
	"github.com/woopsyyy/portal-credsvc/internal/services"
	"github.com/woopsyyy/portal-credsvc/pkg/errors"
	"github.com/woopsyyy/portal-credsvc/pkg/response"
)

const (
	CtxCallerKey   = "authCaller"
	CtxCallerIDKey = "authCallerID"
)

// AdminAuth enforces bearer authentication and the admin role using the
// supplied guard. The caller's directory profile is stored on the gin
// context and propagated as the audit actor.
func AdminAuth(guard *services.AuthGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		caller, err := guard.AuthorizeAdmin(c.Request.Context(), token)
		if err != nil {
			appErr := errors.FromError(err)
			if appErr.StatusCode == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", "Bearer")
			}
			response.Error(c, appErr)
			c.Abort()
			return
		}

		c.Set(CtxCallerKey, caller)
		c.Set(CtxCallerIDKey, caller.ID)

		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			UserID:    caller.ID,
			Username:  caller.Username,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
