// Package password hashes user passwords with an adaptive algorithm.
// New hashes use the configured Hasher; Verify recognizes both encodings so
// the algorithm can change without invalidating stored passwords.
package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Algorithm names accepted by NewHasher
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// bcrypt ignores input past 72 bytes, so longer passwords are refused.
const MaxLength = 72

// DefaultMinLength is the shortest password accepted by Validate
const DefaultMinLength = 8

var (
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrUnknownHash      = errors.New("unrecognized password hash format")
)

// Hasher defines the interface for password hashing implementations
type Hasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash
	Verify(password, hashedPassword string) (bool, error)
}

// NewHasher returns the hasher for algorithm. Empty selects bcrypt.
func NewHasher(algorithm string) (Hasher, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmBcrypt:
		return NewBcryptHasher(), nil
	case AlgorithmArgon2id, "argon2":
		return NewArgon2Hasher(), nil
	default:
		return nil, fmt.Errorf("unsupported password algorithm: %s", algorithm)
	}
}

// Validate checks a candidate password before it is hashed
func Validate(password string, minLength int) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) > MaxLength {
		return ErrPasswordTooLong
	}
	if utf8.RuneCountInString(password) < minLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Verify checks password against a hash produced by any supported Hasher
func Verify(password, hashedPassword string) (bool, error) {
	switch {
	case strings.HasPrefix(hashedPassword, "$argon2id$"):
		return NewArgon2Hasher().Verify(password, hashedPassword)
	case strings.HasPrefix(hashedPassword, "$2a$"),
		strings.HasPrefix(hashedPassword, "$2b$"),
		strings.HasPrefix(hashedPassword, "$2y$"):
		return NewBcryptHasher().Verify(password, hashedPassword)
	default:
		return false, ErrUnknownHash
	}
}
