package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SecretToken is the uniform expiring-token abstraction used by both the
// email-verification and password-reset flows. The plaintext is sent to the
// user exactly once; only the one-way hash and the expiry are persisted, and
// the stored hash is cleared on successful use.
type SecretToken struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// NewSecretToken generates a fresh token valid for ttl from now.
func NewSecretToken(ttl time.Duration) (SecretToken, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return SecretToken{}, fmt.Errorf("generate token: %w", err)
	}

	plaintext := hex.EncodeToString(b)
	return SecretToken{
		Plaintext: plaintext,
		Hash:      HashToken(plaintext),
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// HashToken returns the hex sha256 fingerprint under which a token is stored.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
