package config

import (
	"strings"
	"time"
)

type OAuthConfig interface {
	GetProviders() []ProviderConfig
	GetAuthFlowTimeout() time.Duration
}

// ProviderConfig describes one social login provider. A provider with an Issuer is resolved
// through OIDC discovery; otherwise AuthURL and TokenURL are used directly.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Issuer       string
	Scopes       []string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

var providerDefaults = []ProviderConfig{
	{
		Name:   "google",
		Issuer: "https://accounts.google.com",
		Scopes: []string{"openid", "email", "profile"},
	},
	{
		Name:     "kakao",
		AuthURL:  "https://kauth.kakao.com/oauth/authorize",
		TokenURL: "https://kauth.kakao.com/oauth/token",
		Scopes:   []string{"profile_nickname", "account_email"},
	},
	{
		Name:     "naver",
		AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
		TokenURL: "https://nid.naver.com/oauth2.0/token",
	},
}

// GetProviders returns the providers that have a client id configured.
func (OAuth) GetProviders() []ProviderConfig {
	var providers []ProviderConfig
	for _, d := range providerDefaults {
		prefix := "OAUTH_" + strings.ToUpper(d.Name) + "_"
		p := ProviderConfig{
			Name:         d.Name,
			ClientID:     GetEnv(prefix+"CLIENT_ID", ""),
			ClientSecret: GetEnv(prefix+"CLIENT_SECRET", ""),
			AuthURL:      GetEnv(prefix+"AUTH_URL", d.AuthURL),
			TokenURL:     GetEnv(prefix+"TOKEN_URL", d.TokenURL),
			Issuer:       GetEnv(prefix+"ISSUER", d.Issuer),
			Scopes:       d.Scopes,
		}
		if p.ClientID == "" {
			continue
		}
		// Explicit endpoints win over discovery.
		if GetEnv(prefix+"AUTH_URL", "") != "" && GetEnv(prefix+"ISSUER", "") == "" {
			p.Issuer = ""
		}
		providers = append(providers, p)
	}
	return providers
}

func (OAuth) GetAuthFlowTimeout() time.Duration {
	return 10 * time.Minute
}
