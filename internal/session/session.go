// Package session carries per-user redirect state between the connect step
// and the OAuth callback.
//
// Two stores are provided: CookieStore keeps the values in a signed and
// encrypted cookie (gorilla/sessions); CacheStore keeps them server side in
// the cache (memory or Redis) behind an opaque session id cookie.
package session

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Session is the key/value view of one user's session.
type Session interface {
	Get(key string) (string, bool)
	Has(key string) bool
	Set(key, value string)
	Remove(key string)
}

// Store loads and persists sessions.
type Store interface {
	// Load never returns a nil Session on success; a missing or unreadable
	// cookie yields an empty session.
	Load(r *http.Request) (Session, error)
	// Save persists s if it was modified.
	Save(w http.ResponseWriter, r *http.Request, s Session) error
}

var ErrForeignSession = errors.New("session: session was not loaded by this store")

// CookieConfig configures the session cookie of both stores.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	TTL      time.Duration
	Secure   bool
	SameSite http.SameSite
}

const DefaultCookieName = "oauthconnect_session"

func (c CookieConfig) withDefaults() CookieConfig {
	if c.Name == "" {
		c.Name = DefaultCookieName
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

// ParseSameSite maps "lax", "strict", "none" to http.SameSite (lax otherwise).
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Bag is an in-memory Session that tracks modification.
type Bag struct {
	values   map[string]string
	modified bool
}

var _ Session = (*Bag)(nil)

func NewBag(values map[string]string) *Bag {
	b := &Bag{values: make(map[string]string, len(values))}
	for k, v := range values {
		b.values[k] = v
	}
	return b
}

func (b *Bag) Get(key string) (string, bool) {
	v, ok := b.values[key]
	return v, ok
}

func (b *Bag) Has(key string) bool {
	_, ok := b.values[key]
	return ok
}

func (b *Bag) Set(key, value string) {
	b.values[key] = value
	b.modified = true
}

func (b *Bag) Remove(key string) {
	if _, ok := b.values[key]; ok {
		delete(b.values, key)
		b.modified = true
	}
}

// Values returns a copy of the stored values.
func (b *Bag) Values() map[string]string {
	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Keys returns the stored keys, sorted.
func (b *Bag) Keys() []string {
	out := make([]string, 0, len(b.values))
	for k := range b.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (b *Bag) Modified() bool { return b.modified }
