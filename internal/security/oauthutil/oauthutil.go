// Package oauthutil resolves the firewall a request belongs to and names the
// session keys of that firewall.
package oauthutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/oauthconnect/internal/security/firewall"
	"github.com/dropDatabas3/oauthconnect/internal/security/ownermap"
)

// ErrNoFirewall means no firewall pattern matches the request path. It is a
// configuration error, not a client error.
var ErrNoFirewall = errors.New("oauthutil: no firewall matches request path")

const sessionKeyPrefix = "_security."

// Utils is safe for concurrent use.
type Utils struct {
	firewalls *firewall.Map
	locator   *ownermap.Locator
}

func New(firewalls *firewall.Map, locator *ownermap.Locator) *Utils {
	return &Utils{firewalls: firewalls, locator: locator}
}

// Firewall returns the firewall matching the request path.
func (u *Utils) Firewall(r *http.Request) (firewall.Firewall, error) {
	fw, ok := u.firewalls.Match(r.URL.Path)
	if !ok {
		return firewall.Firewall{}, fmt.Errorf("%w: %s", ErrNoFirewall, r.URL.Path)
	}
	return fw, nil
}

// ResourceOwnerMap returns the active firewall name and its map.
func (u *Utils) ResourceOwnerMap(r *http.Request) (string, ownermap.ResourceOwnerMap, error) {
	fw, err := u.Firewall(r)
	if err != nil {
		return "", nil, err
	}
	m, err := u.locator.Get(fw.Name)
	if err != nil {
		return "", nil, err
	}
	return fw.Name, m, nil
}

// CheckPath returns the callback path of service in firewall fw.
func (u *Utils) CheckPath(fw, service string) (string, error) {
	m, err := u.locator.Get(fw)
	if err != nil {
		return "", err
	}
	return m.ResourceOwnerCheckPath(service)
}

// TargetPathKey is the session key holding the post-login destination.
func TargetPathKey(fw string) string {
	return sessionKeyPrefix + fw + ".target_path"
}

// FailedTargetPathKey is the session key holding the destination after a
// failed login.
func FailedTargetPathKey(fw string) string {
	return sessionKeyPrefix + fw + ".failed_target_path"
}
