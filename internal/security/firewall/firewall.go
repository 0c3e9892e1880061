// Package firewall holds the table of security contexts ("firewalls") and
// resolves which one a request path belongs to.
package firewall

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ServicePlaceholder is replaced by the resource owner name in check path
// templates.
const ServicePlaceholder = "{service}"

// DefaultCheckPath is used when a firewall does not configure a template.
const DefaultCheckPath = "/login/check-" + ServicePlaceholder

var (
	ErrNameRequired  = errors.New("firewall: name required")
	ErrDuplicateName = errors.New("firewall: duplicate name")
	ErrBadPattern    = errors.New("firewall: invalid pattern")
)

// Firewall is one independently configured authentication zone.
type Firewall struct {
	Name string
	// Pattern is a regular expression matched against the request path.
	// An empty pattern matches every path.
	Pattern string
	// CheckPath is the callback path template, e.g. "/login/check-{service}".
	CheckPath string
}

// CheckPathFor expands the check path template for the given resource owner.
func (f Firewall) CheckPathFor(service string) string {
	tpl := f.CheckPath
	if tpl == "" {
		tpl = DefaultCheckPath
	}
	return strings.ReplaceAll(tpl, ServicePlaceholder, service)
}

type entry struct {
	fw          Firewall
	re          *regexp.Regexp
	specificity int
}

// Map is the immutable, ordered firewall table.
type Map struct {
	entries []entry
}

// NewMap validates and compiles the firewalls in configured order.
func NewMap(firewalls ...Firewall) (*Map, error) {
	seen := make(map[string]struct{}, len(firewalls))
	entries := make([]entry, 0, len(firewalls))

	for _, fw := range firewalls {
		name := strings.TrimSpace(fw.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		seen[name] = struct{}{}
		fw.Name = name

		e := entry{fw: fw}
		if fw.Pattern != "" {
			re, err := regexp.Compile(fw.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%w %q for %s: %v", ErrBadPattern, fw.Pattern, name, err)
			}
			e.re = re
			e.specificity = literalPrefixLen(fw.Pattern)
		}
		entries = append(entries, e)
	}

	return &Map{entries: entries}, nil
}

// Match returns the most specific firewall whose pattern matches path.
// Specificity is the length of the pattern's literal prefix; ties go to the
// firewall configured first.
func (m *Map) Match(path string) (Firewall, bool) {
	best := -1
	for i, e := range m.entries {
		if e.re != nil && !e.re.MatchString(path) {
			continue
		}
		if best < 0 || e.specificity > m.entries[best].specificity {
			best = i
		}
	}
	if best < 0 {
		return Firewall{}, false
	}
	return m.entries[best].fw, true
}

// literalPrefixLen measures how much literal path a pattern pins down.
// Anchored programs report no literal prefix, so the anchor is dropped first.
func literalPrefixLen(pattern string) int {
	re, err := regexp.Compile(strings.TrimPrefix(pattern, "^"))
	if err != nil {
		return 0
	}
	prefix, _ := re.LiteralPrefix()
	return len(prefix)
}

// Get returns the firewall with the given name.
func (m *Map) Get(name string) (Firewall, bool) {
	for _, e := range m.entries {
		if e.fw.Name == name {
			return e.fw, true
		}
	}
	return Firewall{}, false
}

// Names returns the firewall names in configured order.
func (m *Map) Names() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.fw.Name)
	}
	return out
}
