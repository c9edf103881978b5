package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/woopsyyy/portal-credsvc/internal/handlers"
	"github.com/woopsyyy/portal-credsvc/internal/identity"
	"github.com/woopsyyy/portal-credsvc/internal/middleware"
	"github.com/woopsyyy/portal-credsvc/internal/services"
	"github.com/woopsyyy/portal-credsvc/pkg/errors"
	"github.com/woopsyyy/portal-credsvc/pkg/response"
)

// Options tunes router-level behaviour.
type Options struct {
	// LoginDomain is the internal suffix for derived login identifiers.
	LoginDomain string
	// RateLimitPerMinute bounds requests per client IP and path. Zero disables limiting.
	RateLimitPerMinute int
	// MetricsEnabled mounts the prometheus endpoint.
	MetricsEnabled bool
}

// NewRouter builds the Gin engine, wires middleware, and registers routes.
func NewRouter(db *gorm.DB, provider identity.Provider, opts Options) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if provider == nil {
		return nil, fmt.Errorf("identity provider must be provided")
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	guard, err := services.NewAuthGuard(db, provider)
	if err != nil {
		return nil, err
	}
	credentialSvc, err := services.NewCredentialService(db, provider, auditSvc, opts.LoginDomain)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if opts.RateLimitPerMinute > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute))
	}

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	credentialHandler := handlers.NewCredentialHandler(credentialSvc)
	auditHandler := handlers.NewAuditHandler(auditSvc)

	requireAdmin := middleware.AdminAuth(guard)

	admin := r.Group("/api/admin")
	admin.Use(requireAdmin)
	{
		admin.POST("/credentials", credentialHandler.SetPassword)
		admin.GET("/audit", auditHandler.List)
	}

	if opts.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.NoMethod(func(c *gin.Context) {
		response.Error(c, errors.ErrMethodNotAllowed)
	})
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, errors.ErrNotFound.WithMessage(fmt.Sprintf("route %s not found", c.Request.URL.Path)))
	})

	return r, nil
}
