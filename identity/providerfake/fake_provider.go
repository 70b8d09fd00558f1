// Package providerfake is an in-memory hosted identity provider. It backs the
// tests and the DEV profile of the bridge server.
package providerfake

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-learner-session/identity"
	"github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/jrsteele09/go-learner-session/internal/utils"
)

// Operation names, as recorded by Calls and targeted by FailNext.
const (
	OpSignUp              = "signUp"
	OpSignIn              = "signIn"
	OpCurrentSession      = "currentSession"
	OpGetCurrentUser      = "getCurrentUser"
	OpFetchUserAttributes = "fetchUserAttributes"
	OpSignOut             = "signOut"
)

var _ identity.Provider = (*FakeProvider)(nil)

type activeSession struct {
	account   *Account
	token     string
	expiresAt time.Time
}

// FakeProvider keeps accounts and at most one session in memory.
type FakeProvider struct {
	mu                  sync.Mutex
	accounts            map[string]*Account // normalised email -> account
	active              *activeSession
	signingKey          []byte
	policy              PasswordPolicy
	requireConfirmation bool
	tokenTTL            time.Duration
	nowTime             func() time.Time
	offline             bool
	faults              map[string]error
	calls               []string
}

// Option configures a FakeProvider.
type Option func(*FakeProvider)

// WithConfirmationRequired makes new accounts unusable until Confirm is called.
func WithConfirmationRequired() Option {
	return func(p *FakeProvider) {
		p.requireConfirmation = true
	}
}

// WithTokenTTL sets the lifetime of minted access tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(p *FakeProvider) {
		p.tokenTTL = ttl
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(p *FakeProvider) {
		p.nowTime = nowFunc
	}
}

// WithPasswordPolicy replaces DefaultPasswordPolicy.
func WithPasswordPolicy(policy PasswordPolicy) Option {
	return func(p *FakeProvider) {
		p.policy = policy
	}
}

func New(options ...Option) *FakeProvider {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	p := &FakeProvider{
		accounts:   make(map[string]*Account),
		signingKey: key,
		policy:     DefaultPasswordPolicy,
		tokenTTL:   time.Hour,
		nowTime:    time.Now,
		faults:     make(map[string]error),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// FailNext makes the next call to op return err.
func (p *FakeProvider) FailNext(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults[op] = err
}

// SetOffline simulates a transport outage for every operation.
func (p *FakeProvider) SetOffline(offline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = offline
}

// Calls returns the operations invoked so far, in order.
func (p *FakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// ResetCalls clears the recorded operations.
func (p *FakeProvider) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// Confirm marks the account for email as verified.
func (p *FakeProvider) Confirm(email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	account, ok := p.accounts[utils.NormaliseEmail(email)]
	if !ok {
		return errors.ErrNotFound
	}
	account.Confirmed = true
	return nil
}

// Account returns a copy of the stored account for email.
func (p *FakeProvider) Account(email string) (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	account, ok := p.accounts[utils.NormaliseEmail(email)]
	if !ok {
		return Account{}, false
	}
	return *account, true
}

func (p *FakeProvider) SignUp(_ context.Context, email, password string, _ map[string]string) (identity.SignUpReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpSignUp); err != nil {
		return identity.SignUpReceipt{}, err
	}

	key := utils.NormaliseEmail(email)
	if key == "" || !strings.Contains(key, "@") {
		return identity.SignUpReceipt{}, identity.NewError(identity.KindValidation, "", "Invalid email address format.", nil)
	}
	if err := p.policy.Validate(password); err != nil {
		return identity.SignUpReceipt{}, identity.NewError(identity.KindValidation, "", err.Error(), err)
	}
	if _, exists := p.accounts[key]; exists {
		return identity.SignUpReceipt{}, identity.NewError(identity.KindConflict, "", "User already exists", nil)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return identity.SignUpReceipt{}, err
	}

	account := &Account{
		ID:           uuid.New().String(),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Confirmed:    !p.requireConfirmation,
		CreatedAt:    p.nowTime(),
	}
	p.accounts[key] = account
	return identity.SignUpReceipt{
		UserID:               account.ID,
		ConfirmationRequired: p.requireConfirmation,
	}, nil
}

func (p *FakeProvider) SignIn(_ context.Context, email, password string) (identity.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpSignIn); err != nil {
		return identity.ProviderSession{}, err
	}

	if p.active != nil {
		return identity.ProviderSession{}, identity.NewError(identity.KindUnknown, "", "There is already a signed in user.", nil)
	}
	account, ok := p.accounts[utils.NormaliseEmail(email)]
	if !ok || !checkPasswordHash(password, account.PasswordHash) {
		return identity.ProviderSession{}, identity.NewError(identity.KindInvalidCredential, "", "Incorrect username or password.", nil)
	}
	if !account.Confirmed {
		return identity.ProviderSession{}, identity.NewError(identity.KindUnconfirmed, "", "User is not confirmed.", nil)
	}

	token, expiresAt, err := p.mintAccessToken(account, p.nowTime())
	if err != nil {
		return identity.ProviderSession{}, err
	}
	p.active = &activeSession{account: account, token: token, expiresAt: expiresAt}
	return identity.ProviderSession{
		UserID:    account.ID,
		SignedIn:  true,
		ExpiresAt: expiresAt,
	}, nil
}

// CurrentSession returns the active token, minting a fresh one once the
// previous token has expired.
func (p *FakeProvider) CurrentSession(_ context.Context) (identity.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpCurrentSession); err != nil {
		return identity.Credential{}, err
	}
	if p.active == nil {
		return identity.Credential{}, errors.ErrNoSession
	}

	now := p.nowTime()
	if !now.Before(p.active.expiresAt) {
		token, expiresAt, err := p.mintAccessToken(p.active.account, now)
		if err != nil {
			return identity.Credential{}, err
		}
		p.active.token = token
		p.active.expiresAt = expiresAt
	}
	return identity.Credential{
		AccessToken: p.active.token,
		ExpiresAt:   p.active.expiresAt,
	}, nil
}

func (p *FakeProvider) GetCurrentUser(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpGetCurrentUser); err != nil {
		return "", err
	}
	if p.active == nil {
		return "", errors.ErrNoSession
	}
	return p.active.account.ID, nil
}

func (p *FakeProvider) FetchUserAttributes(_ context.Context) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpFetchUserAttributes); err != nil {
		return nil, err
	}
	if p.active == nil {
		return nil, errors.ErrNoSession
	}
	return map[string]string{
		"sub":                   p.active.account.ID,
		identity.AttributeEmail: p.active.account.Email,
	}, nil
}

func (p *FakeProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpSignOut); err != nil {
		return err
	}
	if p.active == nil {
		return errors.ErrNoSession
	}
	p.active = nil
	return nil
}

// begin records op and returns any injected failure. Callers hold p.mu.
func (p *FakeProvider) begin(op string) error {
	p.calls = append(p.calls, op)
	if p.offline {
		return identity.NewError(identity.KindNetwork, "", "Network Error", nil)
	}
	if err, ok := p.faults[op]; ok {
		delete(p.faults, op)
		return err
	}
	return nil
}
