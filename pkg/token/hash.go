package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash computes the hex SHA-256 hash of a secret for storage.
func Hash(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// Verify verifies a secret against an expected hash.
//
// Uses constant-time comparison to prevent timing attacks.
func Verify(secret, expectedHash string) bool {
	actualHash := Hash(secret)
	return subtle.ConstantTimeCompare([]byte(actualHash), []byte(expectedHash)) == 1
}
