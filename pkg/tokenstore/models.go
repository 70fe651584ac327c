package tokenstore

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind identifies a single-use token family
type TokenKind string

const (
	KindEmailVerification TokenKind = "email_verification"
	KindPasswordReset     TokenKind = "password_reset"
)

// User is the identity anchor that owns every token
type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	EmailVerified   bool       `json:"email_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// OneTimeToken is an email verification or password reset token.
// TokenHash is the at-rest digest; the raw secret is never stored.
type OneTimeToken struct {
	ID        uuid.UUID `json:"id"`
	Kind      TokenKind `json:"kind"`
	TokenHash string    `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is past its expiry at now
func (t *OneTimeToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// RefreshToken is one active or retired login session
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	JTI       string    `json:"jti"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Live reports whether the session can still be used at now
func (t *RefreshToken) Live(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// CleanupResult counts rows removed by DeleteExpired
type CleanupResult struct {
	EmailVerificationTokens int64
	PasswordResetTokens     int64
	RefreshTokens           int64
}

// Total returns the number of rows removed
func (r CleanupResult) Total() int64 {
	return r.EmailVerificationTokens + r.PasswordResetTokens + r.RefreshTokens
}
