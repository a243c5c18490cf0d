package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb1:"

var errNoTokenKey = errors.New("token is encrypted but TOKEN_ENCRYPTION_KEY is not set")

// TokenCipher seals OAuth tokens at rest with NaCl secretbox. A nil
// *TokenCipher stores tokens as plain text.
type TokenCipher struct {
	key [32]byte
}

// NewTokenCipher builds a cipher from a base64 32-byte key or, failing
// that, from the SHA-256 of the given passphrase. An empty key returns nil.
func NewTokenCipher(key string) *TokenCipher {
	if key == "" {
		return nil
	}
	c := &TokenCipher{}
	if raw, err := base64.StdEncoding.DecodeString(key); err == nil && len(raw) == 32 {
		copy(c.key[:], raw)
		return c
	}
	c.key = sha256.Sum256([]byte(key))
	return c
}

func (c *TokenCipher) Seal(plain string) (string, error) {
	if c == nil || plain == "" {
		return plain, nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(box), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as-is so
// rows written before a key was configured stay readable.
func (c *TokenCipher) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if c == nil {
		return "", errNoTokenKey
	}
	box, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(box) < 24 {
		return "", errors.New("malformed sealed token")
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, &c.key)
	if !ok {
		return "", errors.New("sealed token failed authentication")
	}
	return string(plain), nil
}
