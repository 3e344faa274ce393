// Package cipher provides the line transform applied to every protocol line.
//
// The AES codec only obfuscates traffic: anyone holding the binary or its
// configuration can read it. It is not a confidentiality mechanism.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// KeyEnv holds the base64 encoded AES key (16, 24 or 32 bytes).
const KeyEnv = "GREENHOUSE_CIPHER_KEY"

// Codec is a pair of line transforms. A failed transform returns its input
// unchanged.
type Codec struct {
	Encode func(string) string
	Decode func(string) string
}

func identity(s string) string { return s }

// Identity leaves lines untouched.
func Identity() Codec {
	return Codec{Encode: identity, Decode: identity}
}

// NewAES builds an AES-GCM codec. Lines are sealed with a random nonce and
// sent as base64(nonce|ciphertext).
func NewAES(key []byte) (Codec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return Codec{}, fmt.Errorf("cipher: %w", err)
	}
	aead, err := gocipher.NewGCM(block)
	if err != nil {
		return Codec{}, fmt.Errorf("cipher: %w", err)
	}

	encode := func(s string) string {
		nonce := make([]byte, aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return s
		}
		return base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, []byte(s), nil))
	}
	decode := func(s string) string {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil || len(raw) < aead.NonceSize() {
			return s
		}
		plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
		if err != nil {
			return s
		}
		return string(plain)
	}
	return Codec{Encode: encode, Decode: decode}, nil
}

// FromKey decodes a base64 key and builds the AES codec; an empty key gives
// the identity codec.
func FromKey(b64 string) (Codec, error) {
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return Identity(), nil
	}
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Codec{}, fmt.Errorf("cipher: invalid %s: %w", KeyEnv, err)
	}
	return NewAES(key)
}

// FromEnv reads the key from KeyEnv.
func FromEnv() (Codec, error) {
	return FromKey(os.Getenv(KeyEnv))
}
