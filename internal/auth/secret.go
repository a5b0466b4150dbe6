package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const secretBytes = 64

// SecretGenerator creates raw secrets for verification and reset links.
type SecretGenerator interface {
	Generate(owner uuid.UUID) (raw string, hash string, err error)
}

// RandomSecrets draws secrets from crypto/rand.
type RandomSecrets struct{}

// Generate returns a raw secret (hex of 64 random bytes followed by the owner id)
// and its storable digest. The raw secret is only ever mailed, never stored.
func (RandomSecrets) Generate(owner uuid.UUID) (string, string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read random: %w", err)
	}
	raw := hex.EncodeToString(buf) + owner.String()
	return raw, HashSecret(raw), nil
}

// HashSecret is the deterministic digest used to look secrets up by equality.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
