package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/woopsyyy/portal-credsvc/internal/auditctx"
	"github.com/woopsyyy/portal-credsvc/internal/identity"
	"github.com/woopsyyy/portal-credsvc/internal/models"
	apperrors "github.com/woopsyyy/portal-credsvc/pkg/errors"
	"github.com/woopsyyy/portal-credsvc/pkg/logger"
	"github.com/woopsyyy/portal-credsvc/pkg/metrics"
)

// MinPasswordLength is the only password policy the service enforces.
const MinPasswordLength = 8

// ErrTargetNotFound indicates the requested directory user does not exist.
var ErrTargetNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

// SetPasswordInput carries a validated provisioning request.
type SetPasswordInput struct {
	UserID   uint64
	Password string
}

// SetPasswordResult reports the final binding after provisioning.
type SetPasswordResult struct {
	IdentityRef    string
	LoginID        string
	CreatedAccount bool
}

// CredentialService ensures a directory user's identity-provider account has
// exactly the requested password, creating or rebinding the account as
// needed. It is stateless; concurrent requests for the same target are
// tolerated via the update-to-create fall-through rather than locking.
type CredentialService struct {
	db       *gorm.DB
	provider identity.Provider
	audit    *AuditService
	domain   string
	log      *zap.Logger
}

// NewCredentialService constructs a CredentialService. domain is the fixed
// internal suffix for derived login identifiers.
func NewCredentialService(db *gorm.DB, provider identity.Provider, audit *AuditService, domain string) (*CredentialService, error) {
	if db == nil {
		return nil, errors.New("credential service: db is required")
	}
	if provider == nil {
		return nil, errors.New("credential service: identity provider is required")
	}
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, errors.New("credential service: login domain is required")
	}
	return &CredentialService{
		db:       db,
		provider: provider,
		audit:    audit,
		domain:   domain,
		log:      logger.WithModule("credentials"),
	}, nil
}

// SetPassword runs the full provisioning chain: load target, resolve the
// bound account, update or create, persist the binding, then best-effort
// revival. The directory write is the single commit point; a failure there
// is reported even though the provider side already succeeded, and a caller
// retry re-resolves the now-live account and rebinds it.
func (s *CredentialService) SetPassword(ctx context.Context, input SetPasswordInput) (*SetPasswordResult, error) {
	ctx = ensureContext(ctx)

	if input.UserID == 0 {
		return nil, apperrors.NewBadRequest("user_id must be a positive integer")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	var target models.DirectoryUser
	err := s.db.WithContext(ctx).First(&target, "id = ?", input.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTargetNotFound
	}
	if err != nil {
		metrics.PasswordResets.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(fmt.Errorf("credential service: load target: %w", err), "Internal server error")
	}

	account, err := s.resolve(ctx, &target)
	if err != nil {
		metrics.PasswordResets.WithLabelValues("error").Inc()
		return nil, err
	}

	result, err := s.provision(ctx, &target, account, input.Password)
	if err != nil {
		metrics.PasswordResets.WithLabelValues("error").Inc()
		s.recordOutcome(ctx, &target, nil, "failure")
		return nil, err
	}

	// Single commit point: rebind the directory row to the live account.
	if err := s.bind(ctx, &target, result.IdentityRef); err != nil {
		metrics.PasswordResets.WithLabelValues("error").Inc()
		s.recordOutcome(ctx, &target, result, "failure")
		return nil, err
	}

	s.revive(ctx, result.IdentityRef)

	outcome := "updated"
	if result.CreatedAccount {
		outcome = "created"
	}
	metrics.PasswordResets.WithLabelValues(outcome).Inc()
	s.recordOutcome(ctx, &target, result, "success")

	return result, nil
}

// resolve determines whether the target already has a live identity-provider
// account. A stale reference (provider reports not-found) is cleared in
// memory and logged as informational; any other provider failure aborts the
// request rather than guessing.
func (s *CredentialService) resolve(ctx context.Context, target *models.DirectoryUser) (*identity.Account, error) {
	if target.IdentityRef == nil || strings.TrimSpace(*target.IdentityRef) == "" {
		return nil, nil
	}

	ref := strings.TrimSpace(*target.IdentityRef)
	account, err := s.provider.GetByRef(ctx, ref)
	if identity.IsNotFound(err) {
		s.log.Info("stale identity reference, will create a fresh account",
			zap.Uint64("user_id", target.ID),
			zap.String("identity_ref", ref),
		)
		target.IdentityRef = nil
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("credential service: resolve account: %w", err), "Internal server error")
	}

	return account, nil
}

// provision updates the password on a live account or creates a new one.
// The account being deleted between resolve and update is treated the same
// as never having existed.
func (s *CredentialService) provision(ctx context.Context, target *models.DirectoryUser, account *identity.Account, password string) (*SetPasswordResult, error) {
	if account != nil {
		err := s.provider.UpdatePassword(ctx, account.Ref, password)
		if err == nil {
			return &SetPasswordResult{
				IdentityRef:    account.Ref,
				LoginID:        account.LoginID,
				CreatedAccount: false,
			}, nil
		}
		if !identity.IsNotFound(err) {
			return nil, apperrors.Wrap(fmt.Errorf("credential service: update password: %w", err), "Internal server error")
		}
		s.log.Info("account vanished between resolve and update, creating a fresh one",
			zap.Uint64("user_id", target.ID),
			zap.String("identity_ref", account.Ref),
		)
	}

	return s.create(ctx, target, password)
}

// create attempts the canonical login identifier first, then retries exactly
// once with a randomised fallback when the provider reports a conflict. The
// canonical identifier can collide with a soft-deleted or orphaned provider
// record outside this service's visibility; the bounded retry sidesteps the
// collision without enumerating or cleaning up the orphan.
func (s *CredentialService) create(ctx context.Context, target *models.DirectoryUser, password string) (*SetPasswordResult, error) {
	canonical := CanonicalLoginID(target.Username, target.ID, s.domain)

	account, err := s.provider.Create(ctx, canonical, password)
	if identity.IsConflict(err) {
		metrics.IdentifierFallbacks.Inc()

		fallback, fbErr := fallbackLoginID(canonical)
		if fbErr != nil {
			return nil, apperrors.Wrap(fmt.Errorf("credential service: fallback identifier: %w", fbErr), "Internal server error")
		}

		s.log.Info("canonical identifier in use, retrying with fallback",
			zap.Uint64("user_id", target.ID),
			zap.String("canonical", canonical),
			zap.String("fallback", fallback),
		)

		account, err = s.provider.Create(ctx, fallback, password)
	}
	if err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("credential service: create account: %w", err), "Internal server error")
	}

	return &SetPasswordResult{
		IdentityRef:    account.Ref,
		LoginID:        account.LoginID,
		CreatedAccount: true,
	}, nil
}

// bind persists the identity reference onto the target directory row. This
// is the only mutation the service performs on the directory store.
func (s *CredentialService) bind(ctx context.Context, target *models.DirectoryUser, ref string) error {
	err := s.db.WithContext(ctx).
		Model(&models.DirectoryUser{}).
		Where("id = ?", target.ID).
		Update("identity_ref", ref).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			// Concurrent request bound this ref to another row first; the
			// caller's retry re-resolves and converges.
			s.log.Warn("identity reference already bound elsewhere",
				zap.Uint64("user_id", target.ID),
				zap.String("identity_ref", ref),
			)
		}
		return apperrors.Wrap(fmt.Errorf("credential service: bind reference: %w", err), "Internal server error")
	}
	return nil
}

// revive clears provider-side disable flags on the account. Each call is
// independent and best-effort: a normal, non-disabled account works without
// them, so failures are logged and never abort the request.
func (s *CredentialService) revive(ctx context.Context, ref string) {
	var errs error
	if err := s.provider.ClearSoftDelete(ctx, ref); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("clear soft delete: %w", err))
	}
	if err := s.provider.ClearBan(ctx, ref); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("clear ban: %w", err))
	}
	if err := s.provider.ClearExternalLoginOnly(ctx, ref); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("clear external login: %w", err))
	}

	if errs != nil {
		s.log.Warn("account revival incomplete",
			zap.String("identity_ref", ref),
			zap.Error(errs),
		)
	}
}

func (s *CredentialService) recordOutcome(ctx context.Context, target *models.DirectoryUser, result *SetPasswordResult, outcome string) {
	entry := AuditEntry{
		Action:   "credential.set_password",
		TargetID: &target.ID,
		Result:   outcome,
	}

	if actor, ok := auditctx.FromContext(ctx); ok {
		id := actor.UserID
		entry.ActorID = &id
		entry.ActorName = actor.Username
		entry.IPAddress = actor.IPAddress
		entry.UserAgent = actor.UserAgent
	}

	if result != nil {
		entry.Metadata = map[string]any{
			"identity_ref":    result.IdentityRef,
			"created_account": result.CreatedAccount,
		}
	}

	recordAudit(s.audit, ctx, entry)
}
