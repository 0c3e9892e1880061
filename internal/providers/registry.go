package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// Factory creates a resource owner from its configuration.
type Factory func(cfg Config) (ResourceOwner, error)

// Registry maps owner types to factories. Factories are registered at
// startup, one per supported preset.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry with the generic "oauth2" type registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(TypeOAuth2, func(cfg Config) (ResourceOwner, error) {
		return NewOAuth2(cfg, oauth2.Endpoint{}, nil)
	})
	return r
}

// Register registers (or replaces) the factory for an owner type.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(kind)] = factory
}

// New builds a resource owner. An empty type defaults to the owner name, so
// `facebook: {client_id: ...}` works without `type: facebook`.
func (r *Registry) New(cfg Config) (ResourceOwner, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Type))
	if kind == "" {
		kind = strings.ToLower(cfg.Name)
	}

	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnknownType, kind, cfg.Name)
	}

	owner, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource owner %s: %w", cfg.Name, err)
	}
	return owner, nil
}

// Types returns the registered owner types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
