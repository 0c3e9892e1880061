// Package google registers the Google resource owner preset.
package google

import (
	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/oauthconnect/internal/providers"
)

const ProviderName = "google"

var DefaultScopes = []string{"openid", "email", "profile"}

// Factory creates a Google resource owner.
func Factory(cfg providers.Config) (providers.ResourceOwner, error) {
	return providers.NewOAuth2(cfg, endpoints.Google, DefaultScopes)
}
