// Package ownermap holds the per-firewall resource owner registries.
//
// A Map belongs to exactly one firewall and maps a resource owner name to
// its client and to the check path that identifies its OAuth callback. The
// Locator resolves the Map of a firewall. Both are assembled at startup and
// are read-only afterwards, so request handlers share them without locking.
package ownermap

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/dropDatabas3/oauthconnect/internal/providers"
	"github.com/dropDatabas3/oauthconnect/internal/security/firewall"
)

var (
	ErrResourceOwnerNotFound = errors.New("ownermap: resource owner not found")
	ErrMapNotFound           = errors.New("ownermap: no resource owner map for firewall")
	ErrDuplicateOwner        = errors.New("ownermap: duplicate resource owner")
)

// ResourceOwnerMap resolves resource owners of one firewall.
type ResourceOwnerMap interface {
	// ResourceOwnerByName fails with ErrResourceOwnerNotFound for unknown names.
	ResourceOwnerByName(name string) (providers.ResourceOwner, error)
	// ResourceOwnerCheckPath returns the callback path used as redirect_uri.
	ResourceOwnerCheckPath(name string) (string, error)
}

// Map is the default ResourceOwnerMap.
type Map struct {
	firewall   string
	owners     map[string]providers.ResourceOwner
	checkPaths map[string]string
	names      []string
}

var _ ResourceOwnerMap = (*Map)(nil)

// NewMap builds the map of a firewall. checkPathTemplate contains
// "{service}"; overrides set the check path of individual owners.
func NewMap(fw, checkPathTemplate string, owners []providers.ResourceOwner, overrides map[string]string) (*Map, error) {
	if checkPathTemplate == "" {
		checkPathTemplate = firewall.DefaultCheckPath
	}

	m := &Map{
		firewall:   fw,
		owners:     make(map[string]providers.ResourceOwner, len(owners)),
		checkPaths: make(map[string]string, len(owners)),
		names:      make([]string, 0, len(owners)),
	}
	for _, o := range owners {
		name := o.Name()
		if _, dup := m.owners[name]; dup {
			return nil, fmt.Errorf("%w: %q in firewall %q", ErrDuplicateOwner, name, fw)
		}
		m.owners[name] = o
		m.names = append(m.names, name)

		if cp := strings.TrimSpace(overrides[name]); cp != "" {
			m.checkPaths[name] = cp
		} else {
			m.checkPaths[name] = strings.ReplaceAll(checkPathTemplate, firewall.ServicePlaceholder, name)
		}
	}
	sort.Strings(m.names)
	return m, nil
}

// Firewall returns the firewall this map belongs to.
func (m *Map) Firewall() string { return m.firewall }

// ResourceOwnerByName implements ResourceOwnerMap.
func (m *Map) ResourceOwnerByName(name string) (providers.ResourceOwner, error) {
	o, ok := m.owners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrResourceOwnerNotFound, name)
	}
	return o, nil
}

// ResourceOwnerCheckPath implements ResourceOwnerMap.
func (m *Map) ResourceOwnerCheckPath(name string) (string, error) {
	cp, ok := m.checkPaths[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrResourceOwnerNotFound, name)
	}
	return cp, nil
}

// ResourceOwnerByCheckPath finds the owner whose callback is served at path.
// Absolute check paths are compared by their path component.
func (m *Map) ResourceOwnerByCheckPath(path string) (providers.ResourceOwner, string, bool) {
	for _, name := range m.names {
		if pathOf(m.checkPaths[name]) == path {
			return m.owners[name], name, true
		}
	}
	return nil, "", false
}

// Names returns the registered owner names, sorted.
func (m *Map) Names() []string {
	return append([]string(nil), m.names...)
}

func pathOf(checkPath string) string {
	u, err := url.Parse(checkPath)
	if err != nil {
		return checkPath
	}
	return u.Path
}
