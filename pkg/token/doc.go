// Package token provides API key generation and validation utilities.
//
// Key Format:
//
//   - Key ID prefix: vmk_ (4 characters) followed by 22 characters of
//     Base64 RawURL encoded random bytes
//   - Secret: 43 characters of Base64 RawURL encoded random bytes
//
// Security:
//
//   - Uses crypto/rand for CSPRNG
//   - SHA-256 hashing with constant-time comparison
//   - Secrets are never stored, only hashes
package token
