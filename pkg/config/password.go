package config

import (
	"github.com/tendant/simple-tokens/pkg/password"
)

// PasswordConfig holds the hashing algorithm and the minimum password length
type PasswordConfig struct {
	Algorithm string `env:"PASSWORD_HASH_ALGORITHM" env-default:"bcrypt"`
	MinLength int    `env:"PASSWORD_MIN_LENGTH" env-default:"8"`
}

// NewHasher builds the configured password hasher
func (p PasswordConfig) NewHasher() (password.Hasher, error) {
	return password.NewHasher(p.Algorithm)
}

// Validate checks the algorithm name and the length bounds
func (p PasswordConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequireOneOf("PASSWORD_HASH_ALGORITHM", p.Algorithm, []string{password.AlgorithmBcrypt, password.AlgorithmArgon2id}),
		RequirePositive("PASSWORD_MIN_LENGTH", p.MinLength),
	)
	if p.MinLength > password.MaxLength {
		errs = append(errs, ValidationError{Field: "PASSWORD_MIN_LENGTH", Message: "exceeds the maximum password length"})
	}
	return errs
}
