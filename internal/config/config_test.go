package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "/connect", c.Server.ConnectPath)
	assert.Equal(t, SessionStoreCookie, c.Session.Store)
	assert.Equal(t, "memory", c.Cache.Kind)
	require.Len(t, c.Security.Firewalls, 1)
	assert.Equal(t, "main", c.Security.Firewalls[0].Name)
	assert.Equal(t, "/connect", c.Security.Firewalls[0].ConnectPath)
	assert.Equal(t, []string{"/connect"}, c.ConnectPaths())
	assert.Empty(t, c.Security.TargetPathParameter)
	assert.False(t, c.Server.TrustForwardedHeaders)
}

func TestFirewallConnectPaths(t *testing.T) {
	p := writeConfig(t, `
server:
  connect_path: /connect
security:
  firewalls:
    - name: admin
      pattern: ^/admin
      connect_path: admin/connect/
    - name: api
      pattern: ^/api
      connect_path: /admin/connect
    - name: main
      pattern: ^/
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "/admin/connect", c.Security.Firewalls[0].ConnectPath)
	assert.Equal(t, "/connect", c.Security.Firewalls[2].ConnectPath)
	assert.Equal(t, []string{"/admin/connect", "/connect"}, c.ConnectPaths())
}

func TestLoadYAML(t *testing.T) {
	p := writeConfig(t, `
server:
  connect_path: oauth/connect/
security:
  target_path_parameter: _target_path
  use_referer: true
  target_path_domains_whitelist: [domain.com, .example.org]
  firewalls:
    - name: main
      pattern: ^/
      resource_owners: [facebook]
      check_paths:
        facebook: /fb/callback
resource_owners:
  facebook:
    client_id: fb-id
  google:
    client_id: g-id
    scopes: [openid]
`)
	c, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "/oauth/connect", c.Server.ConnectPath)
	assert.Equal(t, "_target_path", c.Security.TargetPathParameter)
	assert.True(t, c.Security.UseReferer)
	assert.Equal(t, []string{"domain.com", ".example.org"}, c.Security.TargetPathDomainsWhitelist)
	assert.Equal(t, []string{"facebook"}, c.OwnersFor(c.Security.Firewalls[0]))
	assert.Equal(t, []string{"facebook", "google"}, c.OwnersFor(FirewallConfig{Name: "x"}))
	assert.Equal(t, "/fb/callback", c.Security.Firewalls[0].CheckPaths["facebook"])
}

func TestEnvOverrides(t *testing.T) {
	p := writeConfig(t, `
resource_owners:
  corp-sso:
    type: oauth2
    client_id: from-file
`)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("USE_REFERER", "true")
	t.Setenv("FAILED_USE_REFERER", "1")
	t.Setenv("CACHE_KIND", "REDIS")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("TARGET_PATH_DOMAINS_WHITELIST", "a.com, b.com,")
	t.Setenv("OAUTH_CORP_SSO_CLIENT_SECRET", "s3cr3t")
	t.Setenv("TRUST_FORWARDED_HEADERS", "true")

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, ":9999", c.Server.Addr)
	assert.True(t, c.Security.UseReferer)
	assert.True(t, c.Security.FailedUseReferer)
	assert.Equal(t, "redis", c.Cache.Kind)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
	assert.Equal(t, []string{"a.com", "b.com"}, c.Security.TargetPathDomainsWhitelist)
	assert.Equal(t, "from-file", c.ResourceOwners["corp-sso"].ClientID)
	assert.Equal(t, "s3cr3t", c.ResourceOwners["corp-sso"].ClientSecret)
	assert.True(t, c.Server.TrustForwardedHeaders)
}

func TestValidate(t *testing.T) {
	p := writeConfig(t, `
app:
  env: prod
session:
  store: file
  ttl: forever
security:
  firewalls:
    - name: main
      resource_owners: [twitter]
    - name: main
`)
	c, err := Load(p)
	require.NoError(t, err)

	err = c.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "session.store")
	assert.ErrorContains(t, err, "session.ttl")
	assert.ErrorContains(t, err, "session.master_key")
	assert.ErrorContains(t, err, `unknown resource owner "twitter"`)
	assert.ErrorContains(t, err, `duplicate name "main"`)
}
