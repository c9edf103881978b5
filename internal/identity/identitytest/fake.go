package identitytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/woopsyyy/portal-credsvc/internal/identity"
)

// Fake is an in-memory identity.Provider for tests. Zero value is usable;
// error fields inject failures for specific operations.
type Fake struct {
	mu sync.Mutex

	accounts  map[string]*identity.Account // by ref
	passwords map[string]string            // by ref
	byLogin   map[string]string            // loginID -> ref
	tokens    map[string]string            // bearer token -> ref
	nextRef   int

	// Logins listed here reject creation with a conflict exactly once each,
	// simulating orphaned provider records invisible to the service.
	ConflictOnce map[string]bool

	WhoAmIErr   error
	GetByRefErr error
	UpdateErr   error
	CreateErr   error
	ClearErr    error

	// Call records for assertions.
	CreateCalls        []string
	SoftDeleteCleared  []string
	BanCleared         []string
	ExternalCleared    []string
	UpdatePasswordRefs []string
}

var _ identity.Provider = (*Fake)(nil)

func (f *Fake) init() {
	if f.accounts == nil {
		f.accounts = map[string]*identity.Account{}
		f.passwords = map[string]string{}
		f.byLogin = map[string]string{}
		f.tokens = map[string]string{}
	}
}

// Seed inserts an account and returns its ref.
func (f *Fake) Seed(loginID, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	f.nextRef++
	ref := fmt.Sprintf("ref-%d", f.nextRef)
	f.accounts[ref] = &identity.Account{Ref: ref, LoginID: loginID}
	f.passwords[ref] = password
	f.byLogin[loginID] = ref
	return ref
}

// SeedToken binds a bearer token to an existing account ref.
func (f *Fake) SeedToken(token, ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.tokens[token] = ref
}

// Remove deletes an account, turning its ref stale.
func (f *Fake) Remove(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	if acct, ok := f.accounts[ref]; ok {
		delete(f.byLogin, acct.LoginID)
	}
	delete(f.accounts, ref)
	delete(f.passwords, ref)
}

// Password returns the stored password for an account ref.
func (f *Fake) Password(ref string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	return f.passwords[ref]
}

// Account returns a copy of the stored account, or nil.
func (f *Fake) Account(ref string) *identity.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	acct, ok := f.accounts[ref]
	if !ok {
		return nil
	}
	cpy := *acct
	return &cpy
}

func (f *Fake) WhoAmI(_ context.Context, token string) (*identity.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	if f.WhoAmIErr != nil {
		return nil, f.WhoAmIErr
	}

	ref, ok := f.tokens[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	acct, ok := f.accounts[ref]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	cpy := *acct
	return &cpy, nil
}

func (f *Fake) GetByRef(_ context.Context, ref string) (*identity.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	if f.GetByRefErr != nil {
		return nil, f.GetByRefErr
	}

	acct, ok := f.accounts[ref]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	cpy := *acct
	return &cpy, nil
}

func (f *Fake) UpdatePassword(_ context.Context, ref, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	f.UpdatePasswordRefs = append(f.UpdatePasswordRefs, ref)

	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	if _, ok := f.accounts[ref]; !ok {
		return identity.ErrAccountNotFound
	}
	f.passwords[ref] = password
	return nil
}

func (f *Fake) Create(_ context.Context, loginID, password string) (*identity.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	f.CreateCalls = append(f.CreateCalls, loginID)

	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	if f.ConflictOnce[loginID] {
		delete(f.ConflictOnce, loginID)
		return nil, identity.ErrIdentifierConflict
	}
	if _, exists := f.byLogin[loginID]; exists {
		return nil, identity.ErrIdentifierConflict
	}

	f.nextRef++
	ref := fmt.Sprintf("ref-%d", f.nextRef)
	f.accounts[ref] = &identity.Account{Ref: ref, LoginID: loginID}
	f.passwords[ref] = password
	f.byLogin[loginID] = ref

	cpy := *f.accounts[ref]
	return &cpy, nil
}

func (f *Fake) ClearSoftDelete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.SoftDeleteCleared = append(f.SoftDeleteCleared, ref)
	return nil
}

func (f *Fake) ClearBan(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.BanCleared = append(f.BanCleared, ref)
	return nil
}

func (f *Fake) ClearExternalLoginOnly(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()

	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.ExternalCleared = append(f.ExternalCleared, ref)
	return nil
}
