package sessions

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair is the credential pair handed to the client for one session.
// Both credentials carry the same jti.
type TokenPair struct {
	UserID                uuid.UUID `json:"user_id"`
	JTI                   string    `json:"jti"`
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// SessionSummary is a simplified session view for listing
type SessionSummary struct {
	ID               uuid.UUID `json:"id"`
	JTI              string    `json:"jti"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	IsCurrentSession bool      `json:"is_current_session"`
}

// SessionListResponse represents the response for listing sessions
type SessionListResponse struct {
	Sessions   []SessionSummary `json:"sessions"`
	Total      int              `json:"total"`
	CurrentJTI string           `json:"current_jti,omitempty"`
}
