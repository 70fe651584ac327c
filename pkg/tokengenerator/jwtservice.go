package tokengenerator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sosodev/duration"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry  = 5 * time.Minute
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// JwtService issues the access and refresh credentials of a session. Both carry
// the session jti and the user id; they differ in lifetime and token_use.
type JwtService struct {
	generator TokenGenerator

	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// JwtServiceOption is a function that configures a JwtService
type JwtServiceOption func(*JwtService)

// parseDurationValue accepts a time.Duration or a string in ISO8601 ("PT15M")
// or Go ("15m") form
func parseDurationValue(v interface{}) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		if val == "" {
			return 0, nil
		}
		if d, err := duration.Parse(val); err == nil {
			return d.ToTimeDuration(), nil
		}
		return time.ParseDuration(val)
	default:
		return 0, fmt.Errorf("invalid duration type: %T", v)
	}
}

// WithAccessTokenExpiry sets the access token expiry duration.
// Accepts either time.Duration or string (e.g., "5m", "PT5M").
func WithAccessTokenExpiry(expiry interface{}) JwtServiceOption {
	return func(js *JwtService) {
		if d, err := parseDurationValue(expiry); err == nil && d > 0 {
			js.AccessTokenExpiry = d
		} else if err != nil {
			slog.Error("Failed to parse access token expiry", "err", err, "value", expiry)
		}
	}
}

// WithRefreshTokenExpiry sets the refresh token expiry duration.
// Accepts either time.Duration or string (e.g., "168h", "P7D").
func WithRefreshTokenExpiry(expiry interface{}) JwtServiceOption {
	return func(js *JwtService) {
		if d, err := parseDurationValue(expiry); err == nil && d > 0 {
			js.RefreshTokenExpiry = d
		} else if err != nil {
			slog.Error("Failed to parse refresh token expiry", "err", err, "value", expiry)
		}
	}
}

// NewJwtService creates a new JwtService
func NewJwtService(generator TokenGenerator, opts ...JwtServiceOption) *JwtService {
	js := &JwtService{
		generator:          generator,
		AccessTokenExpiry:  DefaultAccessTokenExpiry,
		RefreshTokenExpiry: DefaultRefreshTokenExpiry,
	}
	for _, opt := range opts {
		opt(js)
	}

	slog.Info("Token service configured",
		"accessTokenExpiry", js.AccessTokenExpiry,
		"refreshTokenExpiry", js.RefreshTokenExpiry)
	return js
}

// GenerateAccessToken signs a short-lived access credential
func (js *JwtService) GenerateAccessToken(userID uuid.UUID, jti string) (string, time.Time, error) {
	return js.generator.GenerateToken(userID.String(), jti, AccessTokenUse, js.AccessTokenExpiry)
}

// GenerateRefreshToken signs a refresh credential
func (js *JwtService) GenerateRefreshToken(userID uuid.UUID, jti string) (string, time.Time, error) {
	return js.generator.GenerateToken(userID.String(), jti, RefreshTokenUse, js.RefreshTokenExpiry)
}

// ParseAccessToken verifies an access credential
func (js *JwtService) ParseAccessToken(tokenStr string) (*Claims, error) {
	return js.parse(tokenStr, AccessTokenUse)
}

// ParseRefreshToken verifies a refresh credential
func (js *JwtService) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return js.parse(tokenStr, RefreshTokenUse)
}

func (js *JwtService) parse(tokenStr, use string) (*Claims, error) {
	claims, err := js.generator.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenUse != use {
		return nil, fmt.Errorf("%w: expected %s, got %q", ErrWrongTokenUse, use, claims.TokenUse)
	}
	return claims, nil
}

// UserID returns the subject of claims as a uuid
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
