package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewSecret generates a cryptographically random 64-character hex secret.
// Used for both email verification tokens and password reset secrets.
func NewSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
