package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsWhitelisted_ExactHost(t *testing.T) {
	w := New([]string{"domain.com"})

	assert.True(t, w.IsWhitelisted("https://domain.com/x"))
	assert.True(t, w.IsWhitelisted("http://DOMAIN.com:8080/x?y=z"))
	assert.True(t, w.IsWhitelisted("https://domain.com./x"))
	assert.False(t, w.IsWhitelisted("https://evil.com/x"))

	// Bare patterns never match subdomains.
	assert.False(t, w.IsWhitelisted("https://sub.domain.com/x"))
	assert.False(t, w.IsWhitelisted("https://evildomain.com/x"))
}

func TestIsWhitelisted_DotPattern(t *testing.T) {
	w := New([]string{".domain.com", ".com"})

	for _, target := range []string{
		"https://domain.com/",
		"https://a.domain.com/",
		"https://a.b.domain.com/path",
		"https://other.com",
	} {
		assert.True(t, w.IsWhitelisted(target), target)
	}

	for _, target := range []string{
		"https://evil-com/",
		"https://evil-domain.org/",
		"https://domain.com.evil.org/",
	} {
		assert.False(t, w.IsWhitelisted(target), target)
	}
}

func TestIsWhitelisted_UnknownHosts(t *testing.T) {
	w := New([]string{"domain.com", ".example.org"})

	for _, host := range []string{
		"evil.com",
		"domain.com.evil.com",
		"example.org.evil.com",
		"notexample.org",
		"127.0.0.1",
		"[::1]",
	} {
		assert.False(t, w.IsWhitelisted("https://"+host+"/x"), host)
	}
}

func TestIsWhitelisted_RelativeAlwaysAllowed(t *testing.T) {
	for _, w := range []*DomainWhitelist{New(nil), New([]string{}), New([]string{"domain.com"})} {
		for _, target := range []string{
			"/",
			"/malicious/target/path",
			"/profile?tab=1#top",
			"relative/path",
			"./here",
		} {
			assert.True(t, w.IsWhitelisted(target), target)
		}
	}
}

func TestIsWhitelisted_EmptyWhitelistRejectsAbsolute(t *testing.T) {
	w := New(nil)

	assert.False(t, w.IsWhitelisted("https://domain.com/x"))
	assert.False(t, w.IsWhitelisted("//domain.com/x"))
}

func TestIsWhitelisted_FailsClosed(t *testing.T) {
	w := New([]string{"domain.com"})

	for _, target := range []string{
		"",
		" /leading-space",
		"/trailing-space ",
		"/tab\tinside",
		"/new\nline",
		"//evil.com/x",
		"///evil.com/x",
		`/\evil.com/x`,
		`\\evil.com`,
		"https:evil.com",
		"https://domain.com@evil.com/",
		"javascript:alert(1)",
		"data:text/html,hi",
		"ftp://domain.com/file",
		"https://%zz/",
		"http://",
	} {
		assert.False(t, w.IsWhitelisted(target), "%q", target)
	}
}

func TestIsWhitelisted_SchemeRelativeToAllowedHost(t *testing.T) {
	w := New([]string{"domain.com"})

	assert.True(t, w.IsWhitelisted("//domain.com/x"))
	assert.True(t, w.IsWhitelisted(`\\domain.com\x`))
}

func TestNewNormalizes(t *testing.T) {
	w := New([]string{" Domain.COM ", "", "domain.com", ".Sub.Example.org.", "."})

	assert.Equal(t, []string{"domain.com", ".sub.example.org"}, w.Domains())
}
