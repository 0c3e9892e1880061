// Package whitelist decides whether a post-authentication target may be used
// as a redirect destination.
package whitelist

import (
	"net/url"
	"strings"
	"unicode"
)

// DomainWhitelist is an immutable, ordered set of allowed host patterns.
//
// A pattern is either a bare host ("domain.com"), which matches that host
// only, or a dot-prefixed host (".domain.com"), which matches the host itself
// and any of its subdomains.
type DomainWhitelist struct {
	domains []string
}

// New normalizes the given patterns (trimmed, lower-cased, de-duplicated,
// configured order kept). A nil or empty list allows relative targets only.
func New(domains []string) *DomainWhitelist {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" || d == "." {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return &DomainWhitelist{domains: out}
}

// Domains returns a copy of the normalized patterns.
func (w *DomainWhitelist) Domains() []string {
	out := make([]string, len(w.domains))
	copy(out, w.domains)
	return out
}

// IsWhitelisted reports whether target may be used as a redirect target.
// Relative references are always allowed; absolute ones need an http(s)
// scheme and a host matching one of the patterns. Anything that cannot be
// parsed unambiguously is rejected.
func (w *DomainWhitelist) IsWhitelisted(target string) bool {
	if target == "" || strings.TrimSpace(target) != target || hasControl(target) {
		return false
	}

	// Browsers treat '\' like '/' in special URLs: "/\evil.com" is "//evil.com".
	normalized := strings.ReplaceAll(target, `\`, "/")

	if strings.HasPrefix(normalized, "//") {
		// Scheme-relative. Extra slashes are collapsed by browsers as well.
		normalized = "https://" + strings.TrimLeft(normalized, "/")
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	if u.Scheme == "" && u.Host == "" && u.Opaque == "" {
		return true
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return false
	}
	return w.matchHost(host)
}

func (w *DomainWhitelist) matchHost(host string) bool {
	for _, pattern := range w.domains {
		if host == pattern {
			return true
		}
		if strings.HasPrefix(pattern, ".") {
			if host == pattern[1:] || strings.HasSuffix(host, pattern) {
				return true
			}
		}
	}
	return false
}

func hasControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
