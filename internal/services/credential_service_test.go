package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/woopsyyy/portal-credsvc/internal/database/testutil"
	"github.com/woopsyyy/portal-credsvc/internal/identity"
	"github.com/woopsyyy/portal-credsvc/internal/identity/identitytest"
	"github.com/woopsyyy/portal-credsvc/internal/models"
	apperrors "github.com/woopsyyy/portal-credsvc/pkg/errors"
)

const testDomain = "portal.test"

func newCredentialFixture(t *testing.T) (*CredentialService, *gorm.DB, *identitytest.Fake) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	fake := &identitytest.Fake{}

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewCredentialService(db, fake, audit, testDomain)
	require.NoError(t, err)

	return svc, db, fake
}

func seedDirectoryUser(t *testing.T, db *gorm.DB, user models.DirectoryUser) models.DirectoryUser {
	t.Helper()
	require.NoError(t, db.Create(&user).Error)
	return user
}

func loadDirectoryUser(t *testing.T, db *gorm.DB, id uint64) models.DirectoryUser {
	t.Helper()
	var user models.DirectoryUser
	require.NoError(t, db.First(&user, "id = ?", id).Error)
	return user
}

func TestNewCredentialServiceRequiresCollaborators(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	fake := &identitytest.Fake{}

	_, err := NewCredentialService(nil, fake, nil, testDomain)
	require.Error(t, err)

	_, err = NewCredentialService(db, nil, nil, testDomain)
	require.Error(t, err)

	_, err = NewCredentialService(db, fake, nil, "   ")
	require.Error(t, err)
}

func TestSetPasswordCreatesAccountForUnboundUser(t *testing.T) {
	svc, db, fake := newCredentialFixture(t)

	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 101, Username: "Jane Doe"})

	result, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "s3cret-pass"})
	require.NoError(t, err)

	require.True(t, result.CreatedAccount)
	require.Equal(t, "jane.doe@portal.test", result.LoginID)
	require.NotEmpty(t, result.IdentityRef)
	require.Equal(t, "s3cret-pass", fake.Password(result.IdentityRef))

	stored := loadDirectoryUser(t, db, target.ID)
	require.NotNil(t, stored.IdentityRef)
	require.Equal(t, result.IdentityRef, *stored.IdentityRef)
}

func TestSetPasswordUpdatesExistingAccount(t *testing.T) {
	svc, db, fake := newCredentialFixture(t)

	ref := fake.Seed("jane.doe@portal.test", "old-password")
	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 102, Username: "Jane Doe", IdentityRef: &ref})

	result, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "new-password"})
	require.NoError(t, err)

	require.False(t, result.CreatedAccount)
	require.Equal(t, ref, result.IdentityRef)
	require.Equal(t, "jane.doe@portal.test", result.LoginID)
	require.Equal(t, "new-password", fake.Password(ref))
	require.Empty(t, fake.CreateCalls)

	stored := loadDirectoryUser(t, db, target.ID)
	require.NotNil(t, stored.IdentityRef)
	require.Equal(t, ref, *stored.IdentityRef)
}

func TestSetPasswordHealsStaleReference(t *testing.T) {
	svc, db, _ := newCredentialFixture(t)

	stale := "ref-gone"
	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 103, Username: "jdoe", IdentityRef: &stale})

	result, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "fresh-password"})
	require.NoError(t, err)

	require.True(t, result.CreatedAccount)
	require.NotEqual(t, stale, result.IdentityRef)
	require.Equal(t, "jdoe@portal.test", result.LoginID)

	stored := loadDirectoryUser(t, db, target.ID)
	require.NotNil(t, stored.IdentityRef)
	require.Equal(t, result.IdentityRef, *stored.IdentityRef)
}

func TestSetPasswordConflictFallsBackOnce(t *testing.T) {
	svc, db, fake := newCredentialFixture(t)

	fake.ConflictOnce = map[string]bool{"jdoe@portal.test": true}
	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 104, Username: "jdoe"})

	result, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "fresh-password"})
	require.NoError(t, err)

	require.True(t, result.CreatedAccount)
	require.Len(t, fake.CreateCalls, 2)
	require.Equal(t, "jdoe@portal.test", fake.CreateCalls[0])
	require.Regexp(t, `^jdoe\.[0-9a-f]{8}@portal\.test$`, fake.CreateCalls[1])
	require.Equal(t, fake.CreateCalls[1], result.LoginID)
}

func TestSetPasswordConflictTwiceFails(t *testing.T) {
	svc, db, fake := newCredentialFixture(t)

	// Every create attempt conflicts; the service must stop after a single
	// fallback retry rather than looping.
	fake.CreateErr = identity.ErrIdentifierConflict

	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 105, Username: "jdoe"})

	_, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "fresh-password"})
	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, apperrors.FromError(err).StatusCode)
	require.Len(t, fake.CreateCalls, 2)

	stored := loadDirectoryUser(t, db, target.ID)
	require.Nil(t, stored.IdentityRef)
}

func TestSetPasswordRetryAfterSuccessTakesUpdatePath(t *testing.T) {
	svc, db, fake := newCredentialFixture(t)

	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 106, Username: "jdoe"})

	first, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "password-one"})
	require.NoError(t, err)
	require.True(t, first.CreatedAccount)

	second, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "password-two"})
	require.NoError(t, err)

	require.False(t, second.CreatedAccount)
	require.Equal(t, first.IdentityRef, second.IdentityRef)
	require.Equal(t, "password-two", fake.Password(first.IdentityRef))
	require.Len(t, fake.CreateCalls, 1)
}

func TestSetPasswordAccountVanishedBetweenResolveAndUpdate(t *testing.T) {
	svc, db, fake := newCredentialFixture(t)

	ref := fake.Seed("jdoe.legacy@portal.test", "old-password")
	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 107, Username: "jdoe", IdentityRef: &ref})

	// Resolve sees a live account, then the update races a deletion. The
	// service falls through to create instead of surfacing the not-found.
	fake.UpdateErr = identity.ErrAccountNotFound

	result, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "fresh-password"})
	require.NoError(t, err)

	require.True(t, result.CreatedAccount)
	require.NotEqual(t, ref, result.IdentityRef)
	require.Len(t, fake.UpdatePasswordRefs, 1)
	require.Len(t, fake.CreateCalls, 1)

	stored := loadDirectoryUser(t, db, target.ID)
	require.NotNil(t, stored.IdentityRef)
	require.Equal(t, result.IdentityRef, *stored.IdentityRef)
}

func TestSetPasswordTargetMissing(t *testing.T) {
	svc, _, _ := newCredentialFixture(t)

	_, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: 9999, Password: "fresh-password"})
	require.Error(t, err)

	appErr := apperrors.FromError(err)
	require.Equal(t, http.StatusNotFound, appErr.StatusCode)
	require.Equal(t, "User not found", appErr.Message)
}

func TestSetPasswordRejectsShortPassword(t *testing.T) {
	svc, db, _ := newCredentialFixture(t)

	seedDirectoryUser(t, db, models.DirectoryUser{ID: 108, Username: "jdoe"})

	_, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: 108, Password: "seven77"})
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, apperrors.FromError(err).StatusCode)

	_, err = svc.SetPassword(context.Background(), SetPasswordInput{UserID: 108, Password: "eight888"})
	require.NoError(t, err)
}

func TestSetPasswordRejectsZeroUserID(t *testing.T) {
	svc, _, _ := newCredentialFixture(t)

	_, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: 0, Password: "fresh-password"})
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, apperrors.FromError(err).StatusCode)
}

func TestSetPasswordProviderFailureAborts(t *testing.T) {
	svc, db, fake := newCredentialFixture(t)

	ref := fake.Seed("jdoe@portal.test", "old-password")
	seedDirectoryUser(t, db, models.DirectoryUser{ID: 109, Username: "jdoe", IdentityRef: &ref})

	fake.GetByRefErr = errors.New("provider unavailable")

	_, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: 109, Password: "fresh-password"})
	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, apperrors.FromError(err).StatusCode)
}

func TestSetPasswordRevivalClearsDisableFlags(t *testing.T) {
	svc, db, fake := newCredentialFixture(t)

	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 110, Username: "jdoe"})

	result, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "fresh-password"})
	require.NoError(t, err)

	require.Equal(t, []string{result.IdentityRef}, fake.SoftDeleteCleared)
	require.Equal(t, []string{result.IdentityRef}, fake.BanCleared)
	require.Equal(t, []string{result.IdentityRef}, fake.ExternalCleared)
}

func TestSetPasswordRevivalFailureIsBestEffort(t *testing.T) {
	svc, db, fake := newCredentialFixture(t)

	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 111, Username: "jdoe"})
	fake.ClearErr = errors.New("flag clear unsupported")

	result, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "fresh-password"})
	require.NoError(t, err)
	require.True(t, result.CreatedAccount)
}

func TestSetPasswordWritesAuditTrail(t *testing.T) {
	svc, db, _ := newCredentialFixture(t)

	target := seedDirectoryUser(t, db, models.DirectoryUser{ID: 112, Username: "jdoe"})

	_, err := svc.SetPassword(context.Background(), SetPasswordInput{UserID: target.ID, Password: "fresh-password"})
	require.NoError(t, err)

	var logs []models.AuditLog
	require.NoError(t, db.Where("target_id = ?", target.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, "credential.set_password", logs[0].Action)
	require.Equal(t, "success", logs[0].Result)
}
