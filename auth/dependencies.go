package auth

import (
	"context"

	"github.com/jrsteele09/go-learner-session/authctx"
	"github.com/jrsteele09/go-learner-session/identity"
	"github.com/jrsteele09/go-learner-session/profile"
)

// IdentityClient is satisfied by *identity.Client.
type IdentityClient interface {
	SignUp(ctx context.Context, email, password string) (identity.SignUpReceipt, error)
	SignIn(ctx context.Context, email, password string) (identity.ProviderSession, error)
	CurrentUser(ctx context.Context) (identity.User, bool)
	SignOut(ctx context.Context) error
}

// SessionContext is satisfied by *authctx.AuthContext.
type SessionContext interface {
	Begin() authctx.Token
	Commit(token authctx.Token, user *authctx.Session) bool
	Snapshot() authctx.Snapshot
	CurrentEmail() (string, bool)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
}

// ProfileClient is satisfied by *profile.Client.
type ProfileClient interface {
	ResolveAliasID(ctx context.Context, email string) (string, error)
	GetProfile(ctx context.Context, email, aliasID string) (profile.Record, error)
}
