package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/dropDatabas3/oauthconnect/internal/cache"
)

const cacheKeyPrefix = "sess:"

// CacheStore keeps session values in the cache under an opaque id carried
// by the session cookie.
type CacheStore struct {
	cache  cache.Client
	cookie CookieConfig
}

var _ Store = (*CacheStore)(nil)

func NewCacheStore(c cache.Client, cfg CookieConfig) *CacheStore {
	return &CacheStore{cache: c, cookie: cfg.withDefaults()}
}

type cacheSession struct {
	*Bag
	id    string
	isNew bool
}

// Load implements Store. Unknown, expired or malformed ids start a new
// session with a fresh id.
func (s *CacheStore) Load(r *http.Request) (Session, error) {
	if c, err := r.Cookie(s.cookie.Name); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			raw, err := s.cache.Get(r.Context(), cacheKeyPrefix+id.String())
			switch {
			case err == nil:
				values := map[string]string{}
				if err := json.Unmarshal([]byte(raw), &values); err == nil {
					return &cacheSession{Bag: NewBag(values), id: id.String()}, nil
				}
			case !cache.IsNotFound(err):
				return nil, fmt.Errorf("session: load: %w", err)
			}
		}
	}
	return &cacheSession{Bag: NewBag(nil), id: uuid.NewString(), isNew: true}, nil
}

// Save implements Store. The cookie is (re)issued on every save so its
// lifetime follows the cache entry.
func (s *CacheStore) Save(w http.ResponseWriter, r *http.Request, sess Session) error {
	cs, ok := sess.(*cacheSession)
	if !ok {
		return ErrForeignSession
	}
	if !cs.Modified() {
		return nil
	}

	raw, err := json.Marshal(cs.values)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.cache.Set(r.Context(), cacheKeyPrefix+cs.id, string(raw), s.cookie.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    cs.id,
		Path:     s.cookie.Path,
		Domain:   s.cookie.Domain,
		MaxAge:   int(s.cookie.TTL.Seconds()),
		Secure:   s.cookie.Secure,
		HttpOnly: true,
		SameSite: s.cookie.SameSite,
	})
	return nil
}
