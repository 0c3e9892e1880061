package ownermap

import (
	"fmt"
	"sort"
)

// LocatorBuilder collects maps during wiring.
type LocatorBuilder struct {
	maps map[string]ResourceOwnerMap
}

func NewLocatorBuilder() *LocatorBuilder {
	return &LocatorBuilder{maps: make(map[string]ResourceOwnerMap)}
}

// Set registers the map of a firewall, replacing any previous one.
func (b *LocatorBuilder) Set(firewall string, m ResourceOwnerMap) *LocatorBuilder {
	b.maps[firewall] = m
	return b
}

// Build freezes the registered maps into a Locator. Later Set calls on the
// builder do not affect it.
func (b *LocatorBuilder) Build() *Locator {
	maps := make(map[string]ResourceOwnerMap, len(b.maps))
	for k, v := range b.maps {
		maps[k] = v
	}
	return &Locator{maps: maps}
}

// Locator resolves the ResourceOwnerMap of a firewall.
type Locator struct {
	maps map[string]ResourceOwnerMap
}

// Get fails with ErrMapNotFound when no map was registered for firewall.
func (l *Locator) Get(firewall string) (ResourceOwnerMap, error) {
	m, ok := l.maps[firewall]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMapNotFound, firewall)
	}
	return m, nil
}

// Firewalls returns the firewall names with a registered map, sorted.
func (l *Locator) Firewalls() []string {
	out := make([]string, 0, len(l.maps))
	for k := range l.maps {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
