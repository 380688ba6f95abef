package token

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// KeyIDPrefix marks varmesh API key identifiers.
const KeyIDPrefix = "vmk_"

// Byte lengths of the random material behind IDs and secrets.
const (
	KeyIDLength  = 16
	SecretLength = 32
)

// NewKeyID generates a public API key identifier.
func NewKeyID() (string, error) {
	body, err := generate(KeyIDLength)
	if err != nil {
		return "", err
	}
	return KeyIDPrefix + body, nil
}

// NewSecret generates an API key secret.
func NewSecret() (string, error) {
	return generate(SecretLength)
}

// IsKeyID reports whether s looks like a varmesh key identifier.
func IsKeyID(s string) bool {
	return strings.HasPrefix(s, KeyIDPrefix) && len(s) > len(KeyIDPrefix)
}

func generate(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
