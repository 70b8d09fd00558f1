package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/rs/zerolog/log"
)

// Client wraps a Provider with the session rules the app relies on:
// sign-in always starts from a signed out provider, current user lookups
// never fail, sign-out is idempotent and errors come back classified.
type Client struct {
	provider Provider
	validate *validator.Validate
}

func NewClient(provider Provider) (*Client, error) {
	if provider == nil {
		return nil, errors.New("[identity.NewClient] provider is required")
	}
	return &Client{
		provider: provider,
		validate: validator.New(),
	}, nil
}

// SignUp registers email/password with the provider.
func (c *Client) SignUp(ctx context.Context, email, password string) (SignUpReceipt, error) {
	const op = "signUp"
	email = strings.TrimSpace(email)
	if err := c.validateCredentials(op, email, password); err != nil {
		return SignUpReceipt{}, err
	}

	receipt, err := c.provider.SignUp(ctx, email, password, map[string]string{AttributeEmail: email})
	if err != nil {
		return SignUpReceipt{}, Classify(op, err)
	}
	log.Debug().Str("user_id", receipt.UserID).Bool("confirmation_required", receipt.ConfirmationRequired).Msg("identity: signed up")
	return receipt, nil
}

// SignIn establishes a new provider session. Any existing provider session
// is signed out first so at most one is ever active.
func (c *Client) SignIn(ctx context.Context, email, password string) (ProviderSession, error) {
	const op = "signIn"
	if err := c.SignOut(ctx); err != nil {
		return ProviderSession{}, err
	}

	email = strings.TrimSpace(email)
	if err := c.validateCredentials(op, email, password); err != nil {
		return ProviderSession{}, err
	}

	session, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		return ProviderSession{}, Classify(op, err)
	}
	if !session.SignedIn {
		// An inactive session still needs a step outside the app, such as
		// verifying the address or a second factor.
		if err := c.provider.SignOut(ctx); err != nil && !errors.Is(err, apperrors.ErrNoSession) {
			log.Warn().Err(err).Msg("identity: failed to drop inactive session")
		}
		return ProviderSession{}, NewError(KindUnconfirmed, op, "Sign in is not complete yet.", nil)
	}
	log.Debug().Str("user_id", session.UserID).Time("expires_at", session.ExpiresAt).Msg("identity: signed in")
	return session, nil
}

// CurrentUser returns the active user. Every failure, including a missing
// session, is reported as "no user".
func (c *Client) CurrentUser(ctx context.Context) (User, bool) {
	userID, err := c.provider.GetCurrentUser(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNoSession) {
			log.Warn().Err(err).Msg("identity: current user lookup failed")
		}
		return User{}, false
	}
	attributes, err := c.provider.FetchUserAttributes(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("identity: fetch user attributes failed")
		return User{}, false
	}
	return User{
		UserID: userID,
		Email:  attributes[AttributeEmail],
	}, true
}

// SignOut drops the local provider session. Calling it while signed out is
// not an error.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.provider.SignOut(ctx)
	if err == nil || errors.Is(err, apperrors.ErrNoSession) {
		return nil
	}
	return Classify("signOut", err)
}

// AccessCredential returns the live credential from the provider's own
// session cache.
func (c *Client) AccessCredential(ctx context.Context) (Credential, error) {
	cred, err := c.provider.CurrentSession(ctx)
	if err != nil {
		return Credential{}, Classify("currentSession", err)
	}
	if cred.AccessToken == "" {
		return Credential{}, apperrors.ErrNoSession
	}
	return cred, nil
}

func (c *Client) validateCredentials(op, email, password string) error {
	if err := c.validate.Var(email, "required,email"); err != nil {
		return NewError(KindValidation, op, "Please enter a valid email address.", err)
	}
	if err := c.validate.Var(password, "required"); err != nil {
		return NewError(KindValidation, op, "Password is required.", err)
	}
	return nil
}
