package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// APITokenPrefix marks API tokens so they are recognisable in logs and configs.
const APITokenPrefix = "mpt_"

// NewAPIToken returns a random token with 256 bits of entropy from crypto/rand.
func NewAPIToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return APITokenPrefix + hex.EncodeToString(b), nil
}

// HashAPIToken returns the lookup hash stored in place of the token.
func HashAPIToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenPreview keeps the first 8 and last 4 characters for display.
func TokenPreview(token string) string {
	if len(token) <= 12 {
		return token[:len(token)/2] + "..."
	}
	return token[:8] + "..." + token[len(token)-4:]
}
