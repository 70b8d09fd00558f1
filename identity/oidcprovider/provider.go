// Package oidcprovider signs users in against an OpenID Connect issuer with
// the resource-owner password grant. Tokens stay in memory and are
// refreshed through the oauth2 token source.
package oidcprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-learner-session/identity"
	"github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/jrsteele09/go-learner-session/internal/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ identity.Provider = (*Provider)(nil)

// Settings identify the issuer and the registered client.
type Settings struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	// SignUpURL receives registration requests. Sign-up is unsupported when empty.
	SignUpURL string
	Timeout   time.Duration
}

type Option func(*Provider)

// WithNowTime replaces the clock used for token verification and expiry.
func WithNowTime(nowTime func() time.Time) Option {
	return func(p *Provider) {
		p.nowTime = nowTime
	}
}

// WithScopes replaces the default "openid email profile offline_access" scopes.
func WithScopes(scopes ...string) Option {
	return func(p *Provider) {
		p.oauth.Scopes = scopes
	}
}

// Provider implements identity.Provider for an OIDC issuer.
type Provider struct {
	oidc       *oidc.Provider
	oauth      *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
	signUpURL  string
	nowTime    func() time.Time

	mu      sync.Mutex
	source  oauth2.TokenSource
	idToken string
}

// New discovers the issuer's endpoints and keys.
func New(ctx context.Context, settings Settings, options ...Option) (*Provider, error) {
	if settings.Issuer == "" || settings.ClientID == "" {
		return nil, errors.Wrapf(errors.ErrMissingConfig, "[oidcprovider.New] issuer and client id are required")
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	discovered, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), settings.Issuer)
	if err != nil {
		return nil, fmt.Errorf("[oidcprovider.New] discover %s: %w", settings.Issuer, err)
	}

	p := &Provider{
		oidc: discovered,
		oauth: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			Endpoint:     discovered.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile", oidc.ScopeOfflineAccess},
		},
		httpClient: httpClient,
		signUpURL:  settings.SignUpURL,
		nowTime:    time.Now,
	}
	for _, option := range options {
		option(p)
	}
	p.verifier = discovered.Verifier(&oidc.Config{
		ClientID: settings.ClientID,
		Now:      p.nowTime,
	})
	return p, nil
}

// clientContext makes the oauth2 and oidc packages use the provider's HTTP client.
func (p *Provider) clientContext(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, p.httpClient)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.ProviderSession, error) {
	ctx = p.clientContext(ctx)
	token, err := p.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return identity.ProviderSession{}, classifyTokenError(err)
	}

	var subject string
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken != "" {
		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return identity.ProviderSession{}, identity.NewError(identity.KindUnknown, "", "invalid id token", err)
		}
		subject = idToken.Subject
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt, _ = identity.ExpiryFromJWT(token.AccessToken)
	}

	// Refreshes outlive the sign-in request, so they get their own context.
	source := p.oauth.TokenSource(p.clientContext(context.Background()), token)

	p.mu.Lock()
	p.source = source
	p.idToken = rawIDToken
	p.mu.Unlock()

	log.Debug().Str("user_id", subject).Msg("oidc: password grant complete")
	return identity.ProviderSession{
		UserID:    subject,
		SignedIn:  true,
		ExpiresAt: expiresAt,
	}, nil
}

// CurrentSession returns the access token, refreshing it when it has expired.
// A rejected refresh ends the session.
func (p *Provider) CurrentSession(_ context.Context) (identity.Credential, error) {
	p.mu.Lock()
	source, idToken := p.source, p.idToken
	p.mu.Unlock()
	if source == nil {
		return identity.Credential{}, errors.ErrNoSession
	}

	token, err := source.Token()
	if err != nil {
		classified := classifyTokenError(err)
		if identity.KindOf(classified) == identity.KindInvalidCredential {
			p.dropSource(source)
			return identity.Credential{}, errors.ErrNoSession
		}
		return identity.Credential{}, classified
	}
	if refreshed, ok := token.Extra("id_token").(string); ok && refreshed != "" {
		idToken = refreshed
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt, _ = identity.ExpiryFromJWT(token.AccessToken)
	}
	return identity.Credential{
		AccessToken: token.AccessToken,
		IDToken:     idToken,
		ExpiresAt:   expiresAt,
	}, nil
}

func (p *Provider) GetCurrentUser(ctx context.Context) (string, error) {
	info, err := p.userInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.Subject, nil
}

func (p *Provider) FetchUserAttributes(ctx context.Context) (map[string]string, error) {
	info, err := p.userInfo(ctx)
	if err != nil {
		return nil, err
	}
	claims := map[string]any{}
	if err := info.Claims(&claims); err != nil {
		return nil, identity.NewError(identity.KindUnknown, "", "unreadable user info", err)
	}
	attributes := utils.StringAttributes(map[string]string{"sub": info.Subject}, claims)
	if info.Email != "" {
		attributes[identity.AttributeEmail] = info.Email
	}
	return attributes, nil
}

// SignOut forgets the tokens. The issuer keeps no server-side session for
// the password grant beyond the refresh token, which simply goes unused.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		return errors.ErrNoSession
	}
	p.source = nil
	p.idToken = ""
	return nil
}

func (p *Provider) userInfo(ctx context.Context) (*oidc.UserInfo, error) {
	p.mu.Lock()
	source := p.source
	p.mu.Unlock()
	if source == nil {
		return nil, errors.ErrNoSession
	}
	if _, err := p.CurrentSession(ctx); err != nil {
		return nil, err
	}

	info, err := p.oidc.UserInfo(p.clientContext(ctx), source)
	if err != nil {
		// go-oidc reports the status as the leading text of the error.
		if strings.HasPrefix(err.Error(), "401") {
			p.dropSource(source)
			return nil, errors.ErrNoSession
		}
		return nil, identity.Classify("", err)
	}
	return info, nil
}

func (p *Provider) dropSource(source oauth2.TokenSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == source {
		p.source = nil
		p.idToken = ""
	}
}
