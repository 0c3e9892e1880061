// Package github registers the GitHub OAuth App resource owner preset.
package github

import (
	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/oauthconnect/internal/providers"
)

const ProviderName = "github"

// GitHub does not return private emails without user:email.
var DefaultScopes = []string{"read:user", "user:email"}

// Factory creates a GitHub resource owner.
func Factory(cfg providers.Config) (providers.ResourceOwner, error) {
	return providers.NewOAuth2(cfg, endpoints.GitHub, DefaultScopes)
}
