// Package authctx holds the process-wide session state: whether the
// resume check is still running and who, if anyone, is signed in.
package authctx

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-learner-session/identity"
	"github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/rs/zerolog/log"
)

// Session is the signed in user as the app sees it.
type Session struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Resolved bool   `json:"resolved"`
}

// Snapshot is an immutable view of the context. Version increases with
// every state change.
type Snapshot struct {
	Loading bool     `json:"loading"`
	User    *Session `json:"user"`
	Version uint64   `json:"version"`
}

// Token identifies an operation that may change the session. Only the
// most recently issued token can commit.
type Token uint64

// IdentityClient is the part of identity.Client the context uses.
type IdentityClient interface {
	CurrentUser(ctx context.Context) (identity.User, bool)
	SignOut(ctx context.Context) error
}

type listener struct {
	id int
	fn func(Snapshot)
}

// AuthContext is the single owner of the session. Mutations are serialized;
// listeners run synchronously, in mutation order, and must not mutate the
// context themselves.
type AuthContext struct {
	identity IdentityClient

	mutate sync.Mutex // serializes mutations and their notifications

	mu        sync.RWMutex
	latest    Token
	loading   bool
	user      *Session
	version   uint64
	listeners []listener
	nextID    int
}

func New(identity IdentityClient) *AuthContext {
	return &AuthContext{
		identity: identity,
		loading:  true,
	}
}

// Snapshot returns the current state.
func (c *AuthContext) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *AuthContext) snapshotLocked() Snapshot {
	snapshot := Snapshot{Loading: c.loading, Version: c.version}
	if c.user != nil {
		user := *c.user
		snapshot.User = &user
	}
	return snapshot
}

// CurrentEmail returns the signed in user's email.
func (c *AuthContext) CurrentEmail() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil || c.user.Email == "" {
		return "", false
	}
	return c.user.Email, true
}

// Subscribe registers fn for every subsequent state change.
func (c *AuthContext) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Begin issues a token for an operation about to change the session,
// superseding every token issued before it.
func (c *AuthContext) Begin() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest++
	return c.latest
}

// Commit resolves the session to user if token is still the latest one.
// A superseded commit changes nothing and returns false.
func (c *AuthContext) Commit(token Token, user *Session) bool {
	c.mutate.Lock()
	defer c.mutate.Unlock()

	c.mu.Lock()
	if token != c.latest {
		c.mu.Unlock()
		log.Debug().Uint64("token", uint64(token)).Uint64("latest", uint64(c.latest)).Msg("authctx: superseded commit dropped")
		return false
	}
	c.loading = false
	if user != nil {
		committed := *user
		committed.Resolved = true
		c.user = &committed
	} else {
		c.user = nil
	}
	c.version++
	snapshot := c.snapshotLocked()
	listeners := append([]listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.fn(snapshot)
	}
	return true
}

// Resolve ends loading without changing the user if token is still the
// latest one. Chains that give up after Begin call it so a superseded
// resume check cannot leave the context loading.
func (c *AuthContext) Resolve(token Token) bool {
	c.mutate.Lock()
	defer c.mutate.Unlock()

	c.mu.Lock()
	if token != c.latest {
		c.mu.Unlock()
		return false
	}
	if !c.loading {
		c.mu.Unlock()
		return true
	}
	c.loading = false
	c.version++
	snapshot := c.snapshotLocked()
	listeners := append([]listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.fn(snapshot)
	}
	return true
}

// Resume runs the start-up check for an existing provider session. It
// returns errors.ErrSessionSuperseded when a newer operation won the race.
func (c *AuthContext) Resume(ctx context.Context) error {
	token := c.Begin()
	var session *Session
	if user, ok := c.identity.CurrentUser(ctx); ok {
		session = &Session{UserID: user.UserID, Email: user.Email}
	}
	if !c.Commit(token, session) {
		return errors.ErrSessionSuperseded
	}
	log.Debug().Bool("signed_in", session != nil).Msg("authctx: resume check complete")
	return nil
}

// Refresh re-reads the current user and replaces the session with it. The
// user is left alone when the provider has none, but loading still ends.
func (c *AuthContext) Refresh(ctx context.Context) error {
	token := c.Begin()
	user, ok := c.identity.CurrentUser(ctx)
	if !ok {
		if !c.Resolve(token) {
			return errors.Join(errors.ErrNoSession, errors.ErrSessionSuperseded)
		}
		return errors.ErrNoSession
	}
	if !c.Commit(token, &Session{UserID: user.UserID, Email: user.Email}) {
		return errors.ErrSessionSuperseded
	}
	return nil
}

// SetUser records a completed login.
func (c *AuthContext) SetUser(session Session) {
	c.Commit(c.Begin(), &session)
}

// Logout signs out of the provider and clears the user. The user is
// cleared even when sign-out fails; the failure is returned.
func (c *AuthContext) Logout(ctx context.Context) error {
	token := c.Begin()
	err := c.identity.SignOut(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("authctx: provider sign-out failed, clearing session anyway")
	}
	if !c.Commit(token, nil) {
		return errors.Join(err, errors.ErrSessionSuperseded)
	}
	return err
}
