// Package providers defines the resource owners a user can be redirected to.
//
// A resource owner is one external OAuth2 identity/resource provider
// (Facebook, Google, GitHub, a corporate SSO, ...). This layer only builds the
// authorization URL; the token exchange and profile fetching happen in the
// callback stage.
//
// Architecture:
//   - ResourceOwner: what the connect flow needs from a provider.
//   - OAuth2: generic implementation on top of golang.org/x/oauth2.
//   - Registry: factories keyed by owner type, one sub-package per preset.
package providers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/oauth2"
)

// TypeOAuth2 is the generic owner type; endpoints come from configuration.
const TypeOAuth2 = "oauth2"

var (
	ErrClientIDRequired    = errors.New("providers: client_id required")
	ErrAuthURLRequired     = errors.New("providers: absolute authorization_url required")
	ErrRedirectURIRequired = errors.New("providers: redirect uri required")
	ErrUnknownType         = errors.New("providers: unknown resource owner type")
)

// ResourceOwner produces the authorization URL of one provider.
type ResourceOwner interface {
	Name() string
	// AuthorizationURL returns the absolute URL the browser is sent to.
	// redirectURI is the check path the provider calls back to; extra holds
	// additional authorization request parameters.
	AuthorizationURL(redirectURI string, extra map[string]string) (string, error)
}

// StateGenerator produces the opaque OAuth2 state parameter.
type StateGenerator interface {
	NewState(owner, redirectURI string) (string, error)
}

// Config is the configuration of one resource owner instance.
type Config struct {
	Name         string
	Type         string
	ClientID     string
	ClientSecret string

	// Optional endpoint overrides (required for TypeOAuth2).
	AuthorizationURL string
	TokenURL         string

	Scopes []string

	// Options are static authorization request parameters (prompt,
	// access_type, ...). Preset owners may consume some of them.
	Options map[string]string

	State StateGenerator
}

// reserved parameters are owned by the OAuth2 client and never overridden.
var reserved = map[string]struct{}{
	"response_type": {},
	"client_id":     {},
	"redirect_uri":  {},
	"scope":         {},
	"state":         {},
}

// OAuth2 is a ResourceOwner backed by an oauth2.Config.
type OAuth2 struct {
	name    string
	config  oauth2.Config
	options map[string]string
	state   StateGenerator
}

// NewOAuth2 builds a generic owner. endpoint and defaultScopes are the
// preset values; explicit configuration wins over both.
func NewOAuth2(cfg Config, endpoint oauth2.Endpoint, defaultScopes []string) (*OAuth2, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("%w (%s)", ErrClientIDRequired, cfg.Name)
	}
	if cfg.AuthorizationURL != "" {
		endpoint.AuthURL = cfg.AuthorizationURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if u, err := url.Parse(endpoint.AuthURL); err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w (%s)", ErrAuthURLRequired, cfg.Name)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	options := make(map[string]string, len(cfg.Options))
	for k, v := range cfg.Options {
		options[k] = v
	}

	state := cfg.State
	if state == nil {
		state = RandomState{}
	}

	return &OAuth2{
		name: cfg.Name,
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       append([]string(nil), scopes...),
		},
		options: options,
		state:   state,
	}, nil
}

// Name returns the configured resource owner name.
func (o *OAuth2) Name() string { return o.name }

// AuthorizationURL implements ResourceOwner.
func (o *OAuth2) AuthorizationURL(redirectURI string, extra map[string]string) (string, error) {
	if redirectURI == "" {
		return "", ErrRedirectURIRequired
	}

	state, err := o.state.NewState(o.name, redirectURI)
	if err != nil {
		return "", fmt.Errorf("providers: %s state: %w", o.name, err)
	}

	params := make(map[string]string, len(o.options)+len(extra))
	for k, v := range o.options {
		params[k] = v
	}
	for k, v := range extra {
		params[k] = v
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if _, skip := reserved[k]; skip {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]oauth2.AuthCodeOption, 0, len(keys))
	for _, k := range keys {
		opts = append(opts, oauth2.SetAuthURLParam(k, params[k]))
	}

	cfg := o.config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state, opts...), nil
}

// RandomState is the fallback StateGenerator: 32 random bytes, base64url.
type RandomState struct{}

// NewState implements StateGenerator.
func (RandomState) NewState(string, string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
