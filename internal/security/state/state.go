// Package state signs and verifies the OAuth2 state parameter.
//
// The state is a short-lived HS256 JWT bound to the resource owner and the
// redirect URI. It travels in the authorization URL and comes back on the
// callback, so the connect step needs no server-side storage for it.
package state

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audience is the expected audience of state tokens.
const Audience = "oauth-state"

const (
	DefaultIssuer = "oauthconnect"
	DefaultTTL    = 10 * time.Minute
	minKeyLen     = 32
)

var (
	ErrWeakKey      = errors.New("state: signing key must be at least 32 bytes")
	ErrStateInvalid = errors.New("invalid state token")
	ErrStateExpired = errors.New("state token expired")
	ErrStateOwner   = errors.New("state resource owner mismatch")
)

// Claims of a state token.
type Claims struct {
	Owner       string `json:"owner"`
	RedirectURI string `json:"redir,omitempty"`
	Nonce       string `json:"nonce"`
	jwtv5.RegisteredClaims
}

type Config struct {
	Key    []byte
	Issuer string
	TTL    time.Duration
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Signer implements providers.StateGenerator.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.Key) < minKeyLen {
		return nil, ErrWeakKey
	}
	s := &Signer{
		key:    append([]byte(nil), cfg.Key...),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}
	if s.issuer == "" {
		s.issuer = DefaultIssuer
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// NewState signs a fresh state for owner and redirectURI.
func (s *Signer) NewState(owner, redirectURI string) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		Owner:       owner,
		RedirectURI: redirectURI,
		Nonce:       uuid.NewString(),
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwtv5.ClaimStrings{Audience},
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse validates signature, issuer, audience and expiry.
func (s *Signer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	tk, err := jwtv5.ParseWithClaims(token, claims,
		func(*jwtv5.Token) (any, error) { return s.key, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(s.issuer),
		jwtv5.WithAudience(Audience),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrStateInvalid
	}
	if !tk.Valid {
		return nil, ErrStateInvalid
	}
	return claims, nil
}

// Verify parses token and checks it was issued for owner.
func (s *Signer) Verify(token, owner string) (*Claims, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Owner != owner {
		return nil, ErrStateOwner
	}
	return claims, nil
}
