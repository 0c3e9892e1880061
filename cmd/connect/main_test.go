package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthconnect/internal/config"
	"github.com/dropDatabas3/oauthconnect/internal/http/server"
	"github.com/dropDatabas3/oauthconnect/internal/security/state"
)

const cliConfig = `
session:
  master_key: MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=
security:
  target_path_domains_whitelist: [domain.com, .example.org]
  firewalls:
    - name: main
      pattern: ^/
resource_owners:
  facebook:
    client_id: fb
  github:
    client_id: gh
`

func writeCLIConfig(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cliConfig), 0o600))
	return dir, path
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir, cfg := writeCLIConfig(t)
	return execute(append([]string{"--config", cfg, "--env-file", filepath.Join(dir, "missing.env")}, args...)...)
}

func TestCheckTarget(t *testing.T) {
	out, err := run(t, "check-target", "/account", "https://domain.com/x", "https://a.example.org/")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed  https://domain.com/x")

	out, err = run(t, "check-target", "https://evil.com/")
	assert.Error(t, err)
	assert.Contains(t, out, "DENIED   https://evil.com/")
}

func TestFirewalls(t *testing.T) {
	out, err := run(t, "firewalls")
	require.NoError(t, err)
	assert.Contains(t, out, "/connect/{service}")
	assert.Contains(t, out, "/login/check-facebook")
	assert.Contains(t, out, "/login/check-github")
	assert.Contains(t, out, "whitelist: domain.com, .example.org")
}

func TestConfigPathFromEnvFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	require.NoError(t, os.Unsetenv("CONFIG_PATH"))

	dir, cfg := writeCLIConfig(t)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CONFIG_PATH="+cfg+"\n"), 0o600))

	out, err := execute("--env-file", envFile, "check-target", "https://domain.com/x")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed  https://domain.com/x")

	out, err = execute("--env-file", envFile, "check-target", "https://a.example.org/")
	require.NoError(t, err, "whitelist comes from the file named in .env")
	assert.Contains(t, out, "allowed  https://a.example.org/")
}

func newTestSigner(t *testing.T) *state.Signer {
	t.Helper()
	_, path := writeCLIConfig(t)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	signer, err := server.StateSigner(cfg)
	require.NoError(t, err)
	return signer
}

func TestInspectCallback(t *testing.T) {
	token, err := newTestSigner(t).NewState("facebook", "http://app.example.com/login/check-facebook")
	require.NoError(t, err)

	out, err := run(t, "inspect-callback", "http://app.example.com/login/check-facebook?code=abc&state="+token)
	require.NoError(t, err)
	assert.Contains(t, out, "firewall: main")
	assert.Contains(t, out, "service:  facebook")
	assert.Contains(t, out, "state:    valid, redirect_uri=http://app.example.com/login/check-facebook")

	out, err = run(t, "inspect-callback", "/login/check-github?state="+token)
	assert.ErrorIs(t, err, state.ErrStateOwner)
	assert.Contains(t, out, "service:  github")
	assert.Contains(t, out, "state:    INVALID")

	out, err = run(t, "inspect-callback", "/login/check-github")
	require.NoError(t, err)
	assert.Contains(t, out, "state:    (none)")

	_, err = run(t, "inspect-callback", "/somewhere/else")
	assert.ErrorContains(t, err, "is not a check path of firewall main")
}
