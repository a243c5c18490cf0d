package services

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCipher_SealOpenRoundTrip(t *testing.T) {
	c := NewTokenCipher("a passphrase that is not base64!")
	require.NotNil(t, c)

	sealed, err := c.Seal("ya29.access")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "ya29.access")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access", plain)
}

func TestTokenCipher_Base64Key(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	c := NewTokenCipher(key)
	require.NotNil(t, c)
	assert.Equal(t, [32]byte{}, c.key)
}

func TestTokenCipher_NilStoresPlainText(t *testing.T) {
	var c *TokenCipher = NewTokenCipher("")
	assert.Nil(t, c)

	sealed, err := c.Seal("tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", sealed)

	plain, err := c.Open("tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", plain)
}

func TestTokenCipher_OpenFailures(t *testing.T) {
	sealed, err := NewTokenCipher("one").Seal("tok")
	require.NoError(t, err)

	_, err = NewTokenCipher("two").Open(sealed)
	assert.Error(t, err, "wrong key must not authenticate")

	var none *TokenCipher
	_, err = none.Open(sealed)
	assert.ErrorIs(t, err, errNoTokenKey)

	_, err = NewTokenCipher("one").Open(sealedPrefix + "%%%")
	assert.Error(t, err)
}

func TestTokenCipher_EmptyStaysEmpty(t *testing.T) {
	sealed, err := NewTokenCipher("k").Seal("")
	require.NoError(t, err)
	assert.Equal(t, "", sealed)
}
