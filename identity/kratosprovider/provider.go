// Package kratosprovider talks to a hosted Ory Kratos instance through its
// native (non-browser) self-service flows, the variant meant for mobile
// clients. The session token Kratos issues is held in memory only.
package kratosprovider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/go-learner-session/identity"
	"github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/jrsteele09/go-learner-session/internal/utils"
	kratos "github.com/ory/kratos-client-go"
	"github.com/rs/zerolog/log"
)

const passwordMethod = "password"

var _ identity.Provider = (*Provider)(nil)

// Provider implements identity.Provider against the Kratos public API.
type Provider struct {
	api     *kratos.APIClient
	nowTime func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// New creates a provider for the Kratos public API at publicURL.
func New(publicURL string, timeout time.Duration) (*Provider, error) {
	if !isValidURL(publicURL) {
		return nil, fmt.Errorf("[kratosprovider.New] invalid Kratos public URL: %q", publicURL)
	}

	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{
			URL: publicURL,
		},
	}
	configuration.HTTPClient = &http.Client{
		Timeout: timeout,
	}

	return &Provider{
		api:     kratos.NewAPIClient(configuration),
		nowTime: time.Now,
	}, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string, attributes map[string]string) (identity.SignUpReceipt, error) {
	flow, httpResp, err := p.api.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return identity.SignUpReceipt{}, classifyKratosError(err, httpResp)
	}

	traits := make(map[string]interface{}, len(attributes)+1)
	for k, v := range attributes {
		traits[k] = v
	}
	traits[identity.AttributeEmail] = email

	body := kratos.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&kratos.UpdateRegistrationFlowWithPasswordMethod{
		Method:   passwordMethod,
		Password: password,
		Traits:   traits,
	})
	result, httpResp, err := p.api.FrontendAPI.
		UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(body).
		Execute()
	if err != nil {
		return identity.SignUpReceipt{}, classifyKratosError(err, httpResp)
	}

	// With the session hook enabled Kratos signs the new identity in straight away.
	if token := result.GetSessionToken(); token != "" {
		session := result.GetSession()
		p.setToken(token, utils.Value(session.ExpiresAt))
	}

	confirmationRequired := false
	for _, address := range result.Identity.VerifiableAddresses {
		if !address.Verified {
			confirmationRequired = true
		}
	}
	log.Debug().Str("identity_id", result.Identity.Id).Msg("kratos: registration complete")

	return identity.SignUpReceipt{
		UserID:               result.Identity.Id,
		ConfirmationRequired: confirmationRequired,
	}, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.ProviderSession, error) {
	flow, httpResp, err := p.api.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return identity.ProviderSession{}, classifyKratosError(err, httpResp)
	}

	body := kratos.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&kratos.UpdateLoginFlowWithPasswordMethod{
		Method:     passwordMethod,
		Identifier: email,
		Password:   password,
	})
	result, httpResp, err := p.api.FrontendAPI.
		UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(body).
		Execute()
	if err != nil {
		return identity.ProviderSession{}, classifyKratosError(err, httpResp)
	}

	token := result.GetSessionToken()
	if token == "" {
		return identity.ProviderSession{}, identity.NewError(identity.KindUnknown, "", "Kratos did not return a session token", nil)
	}
	session := result.GetSession()
	expiresAt := utils.Value(session.ExpiresAt)
	p.setToken(token, expiresAt)

	var userID string
	if session.Identity != nil {
		userID = session.Identity.Id
	}
	return identity.ProviderSession{
		UserID:    userID,
		SignedIn:  session.GetActive(),
		ExpiresAt: expiresAt,
	}, nil
}

// CurrentSession returns the cached session token. Kratos tokens are opaque,
// so expiry comes from the session the token was issued with.
func (p *Provider) CurrentSession(_ context.Context) (identity.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == "" {
		return identity.Credential{}, errors.ErrNoSession
	}
	if !p.expiresAt.IsZero() && !p.nowTime().Before(p.expiresAt) {
		p.token = ""
		p.expiresAt = time.Time{}
		return identity.Credential{}, errors.ErrNoSession
	}
	return identity.Credential{
		AccessToken: p.token,
		ExpiresAt:   p.expiresAt,
	}, nil
}

func (p *Provider) GetCurrentUser(ctx context.Context) (string, error) {
	session, err := p.whoami(ctx)
	if err != nil {
		return "", err
	}
	return session.GetIdentity().Id, nil
}

func (p *Provider) FetchUserAttributes(ctx context.Context) (map[string]string, error) {
	session, err := p.whoami(ctx)
	if err != nil {
		return nil, err
	}
	kratosIdentity := session.GetIdentity()
	attributes := map[string]string{"sub": kratosIdentity.Id}
	return utils.StringAttributes(attributes, utils.AsClaims(kratosIdentity.Traits)), nil
}

// SignOut revokes the session token with Kratos and forgets it locally. The
// local copy is dropped even if revocation fails.
func (p *Provider) SignOut(ctx context.Context) error {
	token := p.takeToken()
	if token == "" {
		return errors.ErrNoSession
	}
	httpResp, err := p.api.FrontendAPI.
		PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*kratos.NewPerformNativeLogoutBody(token)).
		Execute()
	if err != nil {
		// An already invalid token means there was nothing to sign out.
		if httpResp != nil && (httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden) {
			return nil
		}
		return classifyKratosError(err, httpResp)
	}
	return nil
}

func (p *Provider) whoami(ctx context.Context) (*kratos.Session, error) {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token == "" {
		return nil, errors.ErrNoSession
	}

	session, httpResp, err := p.api.FrontendAPI.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		if httpResp != nil && httpResp.StatusCode == http.StatusUnauthorized {
			p.clearToken(token)
			return nil, errors.ErrNoSession
		}
		return nil, classifyKratosError(err, httpResp)
	}
	if session.Active != nil && !*session.Active {
		p.clearToken(token)
		return nil, errors.ErrNoSession
	}
	if session.Identity == nil {
		return nil, identity.NewError(identity.KindUnknown, "", "missing identity in session", nil)
	}
	return session, nil
}

func (p *Provider) setToken(token string, expiresAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
	p.expiresAt = expiresAt
}

func (p *Provider) takeToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	token := p.token
	p.token = ""
	p.expiresAt = time.Time{}
	return token
}

// clearToken forgets token unless a newer one replaced it meanwhile.
func (p *Provider) clearToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == token {
		p.token = ""
		p.expiresAt = time.Time{}
	}
}

// isValidURL validates if a URL is properly formatted
func isValidURL(urlStr string) bool {
	if urlStr == "" {
		return false
	}
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return parsedURL.Scheme != "" && parsedURL.Host != ""
}
