package identity

import (
	"context"
	"errors"
)

// Account is the projection of an identity-provider record this service
// needs. Password hashes and disable flags stay provider-side.
type Account struct {
	// Ref is the provider-assigned opaque identifier, immutable once created.
	Ref string
	// LoginID is the email-shaped unique login key. It is a surrogate derived
	// from the directory profile, never a human-communicated credential.
	LoginID string
}

// Sentinel error classes. Callers branch on class, not on provider-specific
// payloads, so the rest of the service stays decoupled from any SDK shape.
var (
	// ErrAccountNotFound marks a stale or deleted account reference.
	ErrAccountNotFound = errors.New("identity: account not found")
	// ErrIdentifierConflict marks a duplicate login identifier at creation.
	ErrIdentifierConflict = errors.New("identity: login identifier already in use")
	// ErrInvalidToken marks an expired, revoked, or malformed bearer token.
	ErrInvalidToken = errors.New("identity: invalid token")
)

// Provider is the capability interface over the external authentication
// backend. Exactly the operations the credential service needs; nothing more.
type Provider interface {
	// WhoAmI resolves the account behind a caller's bearer token.
	WhoAmI(ctx context.Context, token string) (*Account, error)

	// GetByRef fetches an account by its opaque reference.
	GetByRef(ctx context.Context, ref string) (*Account, error)

	// UpdatePassword replaces the password on an existing account.
	UpdatePassword(ctx context.Context, ref, password string) error

	// Create provisions a new account with the login pre-confirmed; this is
	// an administrative action, not self-service signup.
	Create(ctx context.Context, loginID, password string) (*Account, error)

	// Best-effort hygiene operations clearing provider-side disable state.
	ClearSoftDelete(ctx context.Context, ref string) error
	ClearBan(ctx context.Context, ref string) error
	ClearExternalLoginOnly(ctx context.Context, ref string) error
}

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsConflict reports whether err belongs to the conflict class.
func IsConflict(err error) bool {
	return errors.Is(err, ErrIdentifierConflict)
}
