package oauthutil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthconnect/internal/providers"
	"github.com/dropDatabas3/oauthconnect/internal/security/firewall"
	"github.com/dropDatabas3/oauthconnect/internal/security/ownermap"
)

type stubOwner struct{ name string }

func (s stubOwner) Name() string { return s.name }
func (s stubOwner) AuthorizationURL(string, map[string]string) (string, error) {
	return "https://idp.example/auth", nil
}

func newUtils(t *testing.T) *Utils {
	t.Helper()

	fws, err := firewall.NewMap(
		firewall.Firewall{Name: "main", Pattern: "^/"},
		firewall.Firewall{Name: "admin", Pattern: "^/admin", CheckPath: "/admin/check-{service}"},
		firewall.Firewall{Name: "orphan", Pattern: "^/orphan"},
	)
	require.NoError(t, err)

	mainMap, err := ownermap.NewMap("main", "", []providers.ResourceOwner{stubOwner{"facebook"}}, nil)
	require.NoError(t, err)
	adminMap, err := ownermap.NewMap("admin", "/admin/check-{service}", []providers.ResourceOwner{stubOwner{"google"}}, nil)
	require.NoError(t, err)

	loc := ownermap.NewLocatorBuilder().Set("main", mainMap).Set("admin", adminMap).Build()
	return New(fws, loc)
}

func TestResourceOwnerMapByPath(t *testing.T) {
	u := newUtils(t)

	name, m, err := u.ResourceOwnerMap(httptest.NewRequest("GET", "/connect/facebook", nil))
	require.NoError(t, err)
	assert.Equal(t, "main", name)
	_, err = m.ResourceOwnerByName("facebook")
	assert.NoError(t, err)

	name, m, err = u.ResourceOwnerMap(httptest.NewRequest("GET", "/admin/connect/google", nil))
	require.NoError(t, err)
	assert.Equal(t, "admin", name)
	_, err = m.ResourceOwnerByName("facebook")
	assert.ErrorIs(t, err, ownermap.ErrResourceOwnerNotFound)
}

func TestResourceOwnerMapMissing(t *testing.T) {
	u := newUtils(t)

	_, _, err := u.ResourceOwnerMap(httptest.NewRequest("GET", "/orphan/connect/x", nil))
	assert.ErrorIs(t, err, ownermap.ErrMapNotFound)

	fws, err := firewall.NewMap(firewall.Firewall{Name: "api", Pattern: "^/api"})
	require.NoError(t, err)
	u = New(fws, ownermap.NewLocatorBuilder().Build())

	_, _, err = u.ResourceOwnerMap(httptest.NewRequest("GET", "/connect/facebook", nil))
	assert.ErrorIs(t, err, ErrNoFirewall)
}

func TestCheckPath(t *testing.T) {
	u := newUtils(t)

	cp, err := u.CheckPath("admin", "google")
	require.NoError(t, err)
	assert.Equal(t, "/admin/check-google", cp)

	_, err = u.CheckPath("admin", "facebook")
	assert.ErrorIs(t, err, ownermap.ErrResourceOwnerNotFound)

	_, err = u.CheckPath("nope", "google")
	assert.ErrorIs(t, err, ownermap.ErrMapNotFound)
}

func TestSessionKeys(t *testing.T) {
	assert.Equal(t, "_security.default.target_path", TargetPathKey("default"))
	assert.Equal(t, "_security.default.failed_target_path", FailedTargetPathKey("default"))
}
