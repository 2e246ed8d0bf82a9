// Package apikey owns the shared API key of a server run: how it is
// resolved at startup and how candidates are verified against it.
package apikey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Source records where a Material came from.
type Source string

const (
	SourceOverride  Source = "override"
	SourceStore     Source = "store"
	SourceGenerated Source = "generated"
)

const redacted = "[REDACTED]"

// Material is the immutable API key for one process run. The zero value is
// not usable; build one with NewMaterial.
//
// Its fmt and zap renderings are redacted; use Fingerprint to identify a key
// in logs.
type Material struct {
	secret []byte
	digest [sha256.Size]byte
	source Source
}

// NewMaterial wraps a non-empty secret.
func NewMaterial(secret string, source Source) (*Material, error) {
	if secret == "" {
		return nil, fmt.Errorf("api key is empty")
	}
	b := []byte(secret)
	return &Material{
		secret: b,
		digest: sha256.Sum256(b),
		source: source,
	}, nil
}

// Source reports how the key was obtained.
func (m *Material) Source() Source { return m.source }

// Fingerprint is a short, non-reversible identifier safe to log.
func (m *Material) Fingerprint() string {
	return hex.EncodeToString(m.digest[:4])
}

// Reveal returns the cleartext key. Only the key management CLI should call
// this, to show the operator what to configure in clients.
func (m *Material) Reveal() string {
	return string(m.secret)
}

func (m *Material) String() string   { return redacted }
func (m *Material) GoString() string { return redacted }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m *Material) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("source", string(m.source))
	enc.AddString("fingerprint", m.Fingerprint())
	return nil
}
