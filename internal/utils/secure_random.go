package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateSecureRandomString returns lengthInBytes random bytes, hex encoded.
func GenerateSecureRandomString(lengthInBytes int) (string, error) {
	b, err := randomBytes(lengthInBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateAPIKey returns a prefixed, URL safe random key.
func GenerateAPIKey(prefix string, lengthInBytes int) (string, error) {
	b, err := randomBytes(lengthInBytes)
	if err != nil {
		return "", err
	}
	return prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

func randomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("lengthInBytes must be positive")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}
