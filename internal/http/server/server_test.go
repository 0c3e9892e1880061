package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthconnect/internal/config"
)

const testConfig = `
app:
  env: test
session:
  master_key: MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=
security:
  target_path_parameter: _target_path
  target_path_domains_whitelist: [app.example.com]
  forward_parameters: [login_hint]
  firewalls:
    - name: admin
      pattern: ^/admin
      connect_path: /admin/connect
      check_path: /admin/check-{service}
      resource_owners: [corp]
    - name: main
      pattern: ^/
      resource_owners: [facebook, github]
resource_owners:
  facebook:
    client_id: fb-id
  github:
    client_id: gh-id
  corp:
    type: oauth2
    client_id: corp-id
    authorization_url: https://sso.corp.example/authorize
`

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(testConfig), 0o600))
	cfg, err := config.Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuildSecurity(t *testing.T) {
	sec, err := BuildSecurity(loadTestConfig(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"admin", "main"}, sec.Locator.Firewalls())
	assert.Equal(t, []string{"facebook", "github"}, sec.Maps["main"].Names())
	assert.Equal(t, []string{"/admin/connect", "/connect"}, loadTestConfig(t).ConnectPaths())

	cp, err := sec.Utils.CheckPath("admin", "corp")
	require.NoError(t, err)
	assert.Equal(t, "/admin/check-corp", cp)

	assert.True(t, sec.Whitelist.IsWhitelisted("https://app.example.com/x"))
}

func TestBuildSecurityRejectsUnreachableConnectPath(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Security.Firewalls[0].ConnectPath = "/connect"

	_, err := BuildSecurity(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `connect_path "/connect" resolves to firewall "main"`)
}

func TestAppIgnoresForwardedHostByDefault(t *testing.T) {
	app, err := Build(context.Background(), loadTestConfig(t))
	require.NoError(t, err)
	defer app.Close()

	r := httptest.NewRequest(http.MethodGet, "http://app.example.com/connect/github", nil)
	r.Header.Set("X-Forwarded-Host", "attacker.example.net")
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "http://app.example.com/login/check-github", loc.Query().Get("redirect_uri"))
}

func TestAppConnectFlow(t *testing.T) {
	app, err := Build(context.Background(), loadTestConfig(t))
	require.NoError(t, err)
	defer app.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://app.example.com/connect/facebook?_target_path=/account&login_hint=me%40x.io", nil)
	app.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", loc.Host)

	q := loc.Query()
	assert.Equal(t, "fb-id", q.Get("client_id"))
	assert.Equal(t, "http://app.example.com/login/check-facebook", q.Get("redirect_uri"))
	assert.Equal(t, "me@x.io", q.Get("login_hint"))
	assert.Equal(t, 3, len(strings.Split(q.Get("state"), ".")), "state is a JWT")

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Len(t, w.Result().Cookies(), 1)
}

func TestAppRoutesByFirewall(t *testing.T) {
	app, err := Build(context.Background(), loadTestConfig(t))
	require.NoError(t, err)
	defer app.Close()

	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://app.example.com/admin/connect/corp?_target_path=/admin/users", nil))
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "sso.corp.example", loc.Host)
	assert.Equal(t, "corp-id", loc.Query().Get("client_id"))
	assert.Equal(t, "http://app.example.com/admin/check-corp", loc.Query().Get("redirect_uri"))

	// corp is only registered in the admin firewall.
	w = httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/connect/corp", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	w = httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/connect/facebook", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/connect/facebook?_target_path=https://evil.com", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAppAuxiliaryRoutes(t *testing.T) {
	app, err := Build(context.Background(), loadTestConfig(t))
	require.NoError(t, err)
	defer app.Close()

	for path, want := range map[string]int{
		"/healthz": http.StatusOK,
		"/readyz":  http.StatusOK,
		"/metrics": http.StatusOK,
		"/nope":    http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}
