// Package facebook registers the Facebook Login resource owner preset.
package facebook

import (
	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/oauthconnect/internal/providers"
)

const ProviderName = "facebook"

var DefaultScopes = []string{"email", "public_profile"}

// Factory creates a Facebook resource owner.
func Factory(cfg providers.Config) (providers.ResourceOwner, error) {
	return providers.NewOAuth2(cfg, endpoints.Facebook, DefaultScopes)
}
