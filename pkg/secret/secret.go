// Package secret generates the opaque secrets handed to users and the one-way
// digests stored in their place.
//
// Secrets are 256-bit random values, so a single unsalted SHA-256 is the at-rest
// form: the threat is preimage recovery from a leaked table, not dictionary attack.
// Password hashing lives in pkg/password.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// RawSize is the number of random bytes in a secret.
const RawSize = 32

// Secret pairs a raw secret with its at-rest hash.
type Secret struct {
	// Raw is base64url without padding. It is given to the user and never persisted.
	Raw string
	// Hash is the hex SHA-256 of Raw and is the storage lookup key.
	Hash string
}

// NewOpaqueSecret returns a fresh random secret and its at-rest form.
func NewOpaqueSecret() (Secret, error) {
	b := make([]byte, RawSize)
	if _, err := rand.Read(b); err != nil {
		return Secret{}, fmt.Errorf("failed to generate secret: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(b)
	return Secret{Raw: raw, Hash: Hash(raw)}, nil
}

// Hash returns the at-rest form of a raw secret.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewJTI returns a new session identifier.
func NewJTI() string {
	return uuid.NewString()
}

func (s Secret) hashPrefix() string {
	if len(s.Hash) < 8 {
		return s.Hash
	}
	return s.Hash[:8]
}

// String hides the raw secret from fmt output.
func (s Secret) String() string {
	return "secret(" + s.hashPrefix() + ")"
}

// GoString hides the raw secret from %#v.
func (s Secret) GoString() string {
	return s.String()
}

// LogValue hides the raw secret from every slog handler, JSON included.
func (s Secret) LogValue() slog.Value {
	return slog.GroupValue(slog.String("hash_prefix", s.hashPrefix()))
}
