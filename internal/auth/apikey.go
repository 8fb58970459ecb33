// ABOUTME: API key generation and hashing for the issuance path.
// ABOUTME: Keys are opaque strings (sk_ prefix + random bytes). Only sha256 stored.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// APIKeyPrefix is the human-readable prefix on all keyward API keys.
// It is a format marker only and carries no entropy.
const APIKeyPrefix = "sk_"

// apiKeyRandomLen is the number of random bytes behind each key (256 bits).
const apiKeyRandomLen = 32

// GenerateAPIKey creates a new API key. Returns the raw key (shown to the
// caller once), the sha256 hex digest (stored in DB), and any error.
// The random portion is base64url-encoded so the whole key is URL-safe.
func GenerateAPIKey() (rawKey, keyDigest string, err error) {
	b := make([]byte, apiKeyRandomLen)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	rawKey = APIKeyPrefix + base64.RawURLEncoding.EncodeToString(b)
	keyDigest = HashAPIKey(rawKey)
	return rawKey, keyDigest, nil
}

// HashAPIKey returns the sha256 hex digest of the exact plaintext bytes.
// No salt: every key is independently high-entropy and globally unique by
// construction, and digest-keyed lookups need a deterministic transform.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}
