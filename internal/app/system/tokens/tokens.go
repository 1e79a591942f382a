// internal/app/system/tokens/tokens.go
package tokens

import (
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// New returns a random UUIDv4 invitation token. uuid draws from crypto/rand
// and panics if the system source fails.
func New() string {
	return uuid.NewString()
}

// Fingerprint returns the hex BLAKE2b-256 digest of token. Only the
// fingerprint is persisted, so a leaked database cannot redeem invitations.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Valid reports whether token has the shape New produces.
func Valid(token string) bool {
	u, err := uuid.Parse(token)
	return err == nil && u.Version() == 4
}
