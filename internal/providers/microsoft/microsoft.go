// Package microsoft registers the Microsoft identity platform (Azure AD v2)
// resource owner preset.
//
// The tenant is read from the "tenant" option (common, organizations,
// consumers or a tenant id) and is not forwarded as an auth parameter.
package microsoft

import (
	"strings"

	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/oauthconnect/internal/providers"
)

const (
	ProviderName  = "microsoft"
	DefaultTenant = "common"
	tenantOption  = "tenant"
)

var DefaultScopes = []string{"openid", "profile", "email"}

// Factory creates a Microsoft resource owner.
func Factory(cfg providers.Config) (providers.ResourceOwner, error) {
	tenant := DefaultTenant
	options := make(map[string]string, len(cfg.Options))
	for k, v := range cfg.Options {
		if k == tenantOption {
			if t := strings.TrimSpace(v); t != "" {
				tenant = t
			}
			continue
		}
		options[k] = v
	}
	cfg.Options = options

	return providers.NewOAuth2(cfg, endpoints.AzureAD(tenant), DefaultScopes)
}
