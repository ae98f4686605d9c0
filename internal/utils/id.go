package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewTokenID returns a 256-bit random identifier encoded as unpadded
// URL-safe base64 (43 characters). The identifier doubles as the bearer
// secret embedded in action links, so it must be unguessable.
func NewTokenID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
