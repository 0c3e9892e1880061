package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// CookieStore keeps session values in a signed (and, with a block key,
// encrypted) cookie.
type CookieStore struct {
	store *sessions.CookieStore
	name  string
}

var _ Store = (*CookieStore)(nil)

// NewCookieStore builds the store. hashKey authenticates the cookie;
// blockKey (16, 24 or 32 bytes) encrypts it.
func NewCookieStore(cfg CookieConfig, hashKey, blockKey []byte) *CookieStore {
	cfg = cfg.withDefaults()

	st := sessions.NewCookieStore(hashKey, blockKey)
	st.Options = &sessions.Options{
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.TTL.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	}
	st.MaxAge(st.Options.MaxAge)

	return &CookieStore{store: st, name: cfg.Name}
}

type cookieSession struct {
	*Bag
	gs *sessions.Session
}

// Load implements Store. Cookies that fail to decode (tampered, or signed
// with a rotated key) are replaced by an empty session.
func (s *CookieStore) Load(r *http.Request) (Session, error) {
	gs, err := s.store.Get(r, s.name)
	if err != nil {
		opts := *s.store.Options
		gs = sessions.NewSession(s.store, s.name)
		gs.Options = &opts
		gs.IsNew = true
	}

	values := make(map[string]string, len(gs.Values))
	for k, v := range gs.Values {
		ks, ok1 := k.(string)
		vs, ok2 := v.(string)
		if ok1 && ok2 {
			values[ks] = vs
		}
	}
	return &cookieSession{Bag: NewBag(values), gs: gs}, nil
}

// Save implements Store.
func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, sess Session) error {
	cs, ok := sess.(*cookieSession)
	if !ok {
		return ErrForeignSession
	}
	if !cs.Modified() {
		return nil
	}

	cs.gs.Values = make(map[interface{}]interface{}, len(cs.values))
	for k, v := range cs.values {
		cs.gs.Values[k] = v
	}
	return cs.gs.Save(r, w)
}
