package apikey

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// KeyBytes is the entropy of a generated key (256 bits).
const KeyBytes = 32

// Generate returns a fresh URL-safe key read from r, or crypto/rand when r
// is nil.
func Generate(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, KeyBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
