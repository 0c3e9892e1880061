// Package keys turns the single configured master key into purpose-bound
// subkeys (state signing, cookie hash/block keys).
package keys

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const MinMasterKeyLength = 32

// Purposes used by the service.
const (
	PurposeState      = "oauthconnect/state"
	PurposeCookieHash = "oauthconnect/cookie-hash"
	PurposeCookieKey  = "oauthconnect/cookie-block"
)

var (
	ErrMasterKeyEmpty = errors.New("keys: master key not set; generate one with: openssl rand -base64 32")
	ErrMasterKeyShort = fmt.Errorf("keys: master key must decode to at least %d bytes", MinMasterKeyLength)
)

// ParseMasterKey decodes a base64 (std or url, padded or not) or hex master key.
func ParseMasterKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrMasterKeyEmpty
	}

	var k []byte
	if b, err := hex.DecodeString(s); err == nil {
		k = b
	} else {
		for _, enc := range []*base64.Encoding{
			base64.StdEncoding, base64.RawStdEncoding,
			base64.URLEncoding, base64.RawURLEncoding,
		} {
			if b, err := enc.DecodeString(s); err == nil {
				k = b
				break
			}
		}
	}
	if k == nil {
		return nil, fmt.Errorf("keys: master key is neither base64 nor hex")
	}
	if len(k) < MinMasterKeyLength {
		return nil, fmt.Errorf("%w, got %d", ErrMasterKeyShort, len(k))
	}
	return k, nil
}

// Derive returns n bytes of HKDF-SHA256(master) bound to purpose.
func Derive(master []byte, purpose string, n int) ([]byte, error) {
	if len(master) < MinMasterKeyLength {
		return nil, ErrMasterKeyShort
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(purpose)), out); err != nil {
		return nil, fmt.Errorf("keys: derive %s: %w", purpose, err)
	}
	return out, nil
}
