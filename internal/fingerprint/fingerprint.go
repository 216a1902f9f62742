// Package fingerprint computes content hashes used to detect meaningful change
// in extracted text, avoiding redundant refresh calls to the remote index.
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
)

// Hash returns the SHA-256 digest of the UTF-8 bytes of text, Base64-encoded.
// It is used purely for equality comparison, never for security.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return base64.StdEncoding.EncodeToString(sum[:])
}
