package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/woopsyyy/portal-credsvc/internal/identity"
	"github.com/woopsyyy/portal-credsvc/internal/models"
	apperrors "github.com/woopsyyy/portal-credsvc/pkg/errors"
	"github.com/woopsyyy/portal-credsvc/pkg/logger"
	"github.com/woopsyyy/portal-credsvc/pkg/metrics"
)

// AuthGuard resolves a caller's directory profile from a bearer token and
// enforces the admin role. Read-only; it never mutates either store.
type AuthGuard struct {
	db       *gorm.DB
	provider identity.Provider
	log      *zap.Logger
}

// NewAuthGuard constructs an AuthGuard.
func NewAuthGuard(db *gorm.DB, provider identity.Provider) (*AuthGuard, error) {
	if db == nil {
		return nil, errors.New("auth guard: db is required")
	}
	if provider == nil {
		return nil, errors.New("auth guard: identity provider is required")
	}
	return &AuthGuard{
		db:       db,
		provider: provider,
		log:      logger.WithModule("authguard"),
	}, nil
}

// AuthorizeAdmin exchanges the bearer token for a directory profile and
// verifies the caller's normalised role set contains "admin". A caller with
// a valid token but no directory row is treated as not authorized, not as a
// silently allowed anonymous profile.
func (g *AuthGuard) AuthorizeAdmin(ctx context.Context, token string) (*models.DirectoryUser, error) {
	ctx = ensureContext(ctx)

	account, err := g.provider.WhoAmI(ctx, token)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("unauthorized").Inc()
		g.log.Info("token rejected by identity provider",
			zap.String("token_sub", unverifiedSubject(token)),
			zap.Error(err),
		)
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}

	var caller models.DirectoryUser
	err = g.db.WithContext(ctx).
		Where("identity_ref = ?", account.Ref).
		First(&caller).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("unauthorized").Inc()
		g.log.Info("no directory profile bound to caller account",
			zap.String("identity_ref", account.Ref),
		)
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(fmt.Errorf("auth guard: load caller: %w", err), "Internal server error")
	}

	if !NormalizeRoles(&caller).Has(AdminRole) {
		metrics.AuthAttempts.WithLabelValues("forbidden").Inc()
		return nil, apperrors.ErrForbidden
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &caller, nil
}

// unverifiedSubject pulls the sub claim out of the token without verifying
// it, purely to give operators a hint in rejection logs. Verification is the
// identity provider's job; this value is never trusted.
func unverifiedSubject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
