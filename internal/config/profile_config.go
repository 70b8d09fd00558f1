package config

// ProfileAPIConfig describes the downstream profile service. URL templates
// contain the <tenant>, <user_email> and <user_alias> placeholders.
type ProfileAPIConfig interface {
	GetTenantName() string
	GetTenantAPIKey() string
	GetAliasURL() string
	GetProfileURL() string
}

type ProfileAPI struct {
	TenantName   string `env:"TENANT_NAME" envDefault:"learner"`
	TenantAPIKey string `env:"TENANT_API_KEY"`
	AliasURL     string `env:"ALIAS_URL" envDefault:"http://localhost:9000/<tenant>/users/alias?email=<user_email>"`
	ProfileURL   string `env:"PROFILE_URL" envDefault:"http://localhost:9000/<tenant>/users/<user_alias>/profile"`
}

var _ ProfileAPIConfig = ProfileAPI{}

func (p ProfileAPI) GetTenantName() string {
	return p.TenantName
}

func (p ProfileAPI) GetTenantAPIKey() string {
	return p.TenantAPIKey
}

func (p ProfileAPI) GetAliasURL() string {
	return p.AliasURL
}

func (p ProfileAPI) GetProfileURL() string {
	return p.ProfileURL
}
