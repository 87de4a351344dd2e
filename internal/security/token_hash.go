package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the hex-encoded SHA-256 of a bearer token. Persistent session stores
// key records by this value so raw tokens are never written to disk, and transports use it
// as the public session id.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
