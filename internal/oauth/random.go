package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// newSecret returns a hex-encoded cryptographically random string carrying
// length*8 bits of entropy. Codes and tokens use 32 bytes (256 bits), well
// past the 128-bit floor for unguessable credentials.
func newSecret(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

const secretLength = 32
