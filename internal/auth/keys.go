package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey derives the stored form of a tenant API key. Only the
// SHA-256 digest is persisted; the raw key is shown once at creation.
// Surrounding whitespace is stripped so keys pasted from a terminal
// still match.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}
