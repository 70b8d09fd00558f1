// Package authenticator attaches session credentials to outbound requests
// for the downstream learner APIs.
package authenticator

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-learner-session/credstore"
	"github.com/jrsteele09/go-learner-session/identity"
	"github.com/rs/zerolog/log"
)

// Header names the downstream APIs expect.
const (
	HeaderAuthorization = "Authorization"
	HeaderAlias         = "user"
	HeaderTenant        = "tenant"
	HeaderAPIKey        = "apiKey"
	HeaderContentType   = "Content-Type"
)

// CredentialSource hands out the live access credential.
type CredentialSource interface {
	AccessCredential(ctx context.Context) (identity.Credential, error)
}

// EmailSource reports the email of the signed in user, if any.
type EmailSource interface {
	CurrentEmail() (string, bool)
}

type aliasKey struct{}

// WithAliasID makes aliasID the alias header for requests built with ctx,
// overriding the stored value.
func WithAliasID(ctx context.Context, aliasID string) context.Context {
	return context.WithValue(ctx, aliasKey{}, aliasID)
}

func aliasFromContext(ctx context.Context) (string, bool) {
	aliasID, ok := ctx.Value(aliasKey{}).(string)
	return aliasID, ok && aliasID != ""
}

type Option func(*Transport)

// WithBase sets the transport requests are finally sent through.
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = base
	}
}

// WithTenant sets the static tenant and apiKey headers.
func WithTenant(tenant, apiKey string) Option {
	return func(t *Transport) {
		t.tenant = tenant
		t.apiKey = apiKey
	}
}

// WithNowTime sets the clock credentials are checked against.
func WithNowTime(nowFunc func() time.Time) Option {
	return func(t *Transport) {
		t.nowTime = nowFunc
	}
}

// WithAliasStore lets the transport look up the stored alias of the
// current user when the request does not carry one.
func WithAliasStore(store credstore.Store, emails EmailSource) Option {
	return func(t *Transport) {
		t.store = store
		t.emails = emails
	}
}

// Transport is an http.RoundTripper that adds the bearer token, the user
// alias and the tenant metadata to every request. It never retries; a
// missing credential leaves the header off and the request goes out anyway.
type Transport struct {
	base        http.RoundTripper
	credentials CredentialSource
	store       credstore.Store
	emails      EmailSource
	tenant      string
	apiKey      string
	nowTime     func() time.Time
}

var _ http.RoundTripper = (*Transport)(nil)

func New(credentials CredentialSource, options ...Option) *Transport {
	t := &Transport{
		base:        http.DefaultTransport,
		credentials: credentials,
		nowTime:     time.Now,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Client returns an http.Client sending through the transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	clonedReq := req.Clone(ctx)

	if t.credentials != nil {
		cred, err := t.credentials.AccessCredential(ctx)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("url", req.URL.Redacted()).Msg("authenticator: no access credential, sending without authorization")
		case !cred.Valid(t.nowTime()):
			log.Warn().Time("expires_at", cred.ExpiresAt).Str("url", req.URL.Redacted()).Msg("authenticator: access credential expired, sending without authorization")
		default:
			clonedReq.Header.Set(HeaderAuthorization, "Bearer "+cred.AccessToken)
		}
	}

	if aliasID := t.aliasID(ctx); aliasID != "" {
		clonedReq.Header.Set(HeaderAlias, aliasID)
	}
	if t.tenant != "" {
		clonedReq.Header.Set(HeaderTenant, t.tenant)
	}
	if t.apiKey != "" {
		clonedReq.Header.Set(HeaderAPIKey, t.apiKey)
	}
	if clonedReq.Header.Get(HeaderContentType) == "" {
		clonedReq.Header.Set(HeaderContentType, "application/json")
	}

	return t.base.RoundTrip(clonedReq)
}

func (t *Transport) aliasID(ctx context.Context) string {
	if aliasID, ok := aliasFromContext(ctx); ok {
		return aliasID
	}
	if t.store == nil || t.emails == nil {
		return ""
	}
	email, ok := t.emails.CurrentEmail()
	if !ok {
		return ""
	}
	aliasID, found, err := t.store.Get(ctx, credstore.AliasKey(email))
	if err != nil {
		log.Warn().Err(err).Msg("authenticator: alias lookup failed")
		return ""
	}
	if !found {
		return ""
	}
	return aliasID
}
