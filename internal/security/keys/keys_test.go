package keys

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMasterKey(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, 32)

	for _, enc := range []string{
		base64.StdEncoding.EncodeToString(raw),
		base64.RawURLEncoding.EncodeToString(raw),
		hex.EncodeToString(raw),
		"  " + base64.StdEncoding.EncodeToString(raw) + "\n",
	} {
		k, err := ParseMasterKey(enc)
		require.NoError(t, err, enc)
		assert.Equal(t, raw, k)
	}

	_, err := ParseMasterKey("")
	assert.ErrorIs(t, err, ErrMasterKeyEmpty)

	_, err = ParseMasterKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrMasterKeyShort)

	_, err = ParseMasterKey("%%%not a key%%%")
	assert.Error(t, err)
}

func TestDerive(t *testing.T) {
	master := bytes.Repeat([]byte{1}, 32)

	a, err := Derive(master, PurposeState, 32)
	require.NoError(t, err)
	again, err := Derive(master, PurposeState, 32)
	require.NoError(t, err)
	b, err := Derive(master, PurposeCookieHash, 32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b)

	_, err = Derive([]byte("short"), PurposeState, 32)
	assert.ErrorIs(t, err, ErrMasterKeyShort)
}
