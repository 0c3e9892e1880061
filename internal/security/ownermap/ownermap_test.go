package ownermap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthconnect/internal/providers"
)

type stubOwner struct{ name string }

func (s stubOwner) Name() string { return s.name }
func (s stubOwner) AuthorizationURL(string, map[string]string) (string, error) {
	return "https://" + s.name + ".example/auth", nil
}

func owners(names ...string) []providers.ResourceOwner {
	out := make([]providers.ResourceOwner, 0, len(names))
	for _, n := range names {
		out = append(out, stubOwner{name: n})
	}
	return out
}

func TestMapLookup(t *testing.T) {
	m, err := NewMap("main", "", owners("facebook", "google"), map[string]string{
		"google": "https://app.example.com/auth/google/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "main", m.Firewall())
	assert.Equal(t, []string{"facebook", "google"}, m.Names())

	o, err := m.ResourceOwnerByName("facebook")
	require.NoError(t, err)
	assert.Equal(t, "facebook", o.Name())

	cp, err := m.ResourceOwnerCheckPath("facebook")
	require.NoError(t, err)
	assert.Equal(t, "/login/check-facebook", cp)

	cp, err = m.ResourceOwnerCheckPath("google")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/auth/google/callback", cp)
}

func TestMapUnknownOwner(t *testing.T) {
	m, err := NewMap("main", "/secured/check-{service}", owners("facebook"), nil)
	require.NoError(t, err)

	o, err := m.ResourceOwnerByName("twitter")
	assert.Nil(t, o)
	assert.ErrorIs(t, err, ErrResourceOwnerNotFound)

	_, err = m.ResourceOwnerCheckPath("twitter")
	assert.ErrorIs(t, err, ErrResourceOwnerNotFound)
}

func TestMapDuplicateOwner(t *testing.T) {
	_, err := NewMap("main", "", owners("facebook", "facebook"), nil)
	assert.ErrorIs(t, err, ErrDuplicateOwner)
}

func TestResourceOwnerByCheckPath(t *testing.T) {
	m, err := NewMap("main", "/secured/check-{service}", owners("facebook", "google"), map[string]string{
		"google": "https://app.example.com/auth/google/callback",
	})
	require.NoError(t, err)

	o, name, ok := m.ResourceOwnerByCheckPath("/secured/check-facebook")
	require.True(t, ok)
	assert.Equal(t, "facebook", name)
	assert.Equal(t, "facebook", o.Name())

	_, name, ok = m.ResourceOwnerByCheckPath("/auth/google/callback")
	require.True(t, ok)
	assert.Equal(t, "google", name)

	_, _, ok = m.ResourceOwnerByCheckPath("/secured/check-twitter")
	assert.False(t, ok)
}

func TestLocator(t *testing.T) {
	main, err := NewMap("main", "", owners("facebook"), nil)
	require.NoError(t, err)
	admin, err := NewMap("admin", "", owners("google"), nil)
	require.NoError(t, err)

	b := NewLocatorBuilder().Set("main", admin).Set("main", main).Set("admin", admin)
	loc := b.Build()
	b.Set("late", main)

	got, err := loc.Get("main")
	require.NoError(t, err)
	assert.Same(t, main, got)

	_, err = loc.Get("late")
	assert.ErrorIs(t, err, ErrMapNotFound)
	_, err = loc.Get("")
	assert.ErrorIs(t, err, ErrMapNotFound)

	assert.Equal(t, []string{"admin", "main"}, loc.Firewalls())
}
