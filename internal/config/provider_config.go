package config

import (
	"strings"
	"time"
)

// Identity provider backends selectable with PROVIDER.
const (
	ProviderKratos = "kratos"
	ProviderOIDC   = "oidc"
	ProviderFake   = "fake"
)

type ProviderConfig interface {
	GetProviderKind() string
	GetKratosPublicURL() string
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetOIDCSignUpURL() string
	GetHTTPTimeout() time.Duration
}

type Provider struct {
	Kind             string        `env:"PROVIDER" envDefault:"kratos"`
	KratosPublicURL  string        `env:"KRATOS_PUBLIC_URL" envDefault:"http://localhost:4433"`
	OIDCIssuer       string        `env:"OIDC_ISSUER"`
	OIDCClientID     string        `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret string        `env:"OIDC_CLIENT_SECRET"`
	OIDCSignUpURL    string        `env:"OIDC_SIGNUP_URL"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

var _ ProviderConfig = Provider{}

func (p Provider) GetProviderKind() string {
	return strings.ToLower(strings.TrimSpace(p.Kind))
}

func (p Provider) GetKratosPublicURL() string {
	return p.KratosPublicURL
}

func (p Provider) GetOIDCIssuer() string {
	return p.OIDCIssuer
}

func (p Provider) GetOIDCClientID() string {
	return p.OIDCClientID
}

func (p Provider) GetOIDCClientSecret() string {
	return p.OIDCClientSecret
}

func (p Provider) GetOIDCSignUpURL() string {
	return p.OIDCSignUpURL
}

func (p Provider) GetHTTPTimeout() time.Duration {
	if p.HTTPTimeout <= 0 {
		return 10 * time.Second
	}
	return p.HTTPTimeout
}
