package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken generates a cryptographically secure random token
// encoded as base64 URL-safe (no padding). Used for opaque identifiers
// that don't need to round-trip through a fixed-width hex format.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	tokenBytes := make([]byte, length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}

// GenerateEncryptionKey returns a hex-encoded 256-bit key, the format
// every instance's encryption_key takes: 32 random bytes, 64 lowercase
// hex characters.
func GenerateEncryptionKey() (string, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return hex.EncodeToString(keyBytes), nil
}
