package tokengenerator

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtTokenGenerator(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	g := NewJwtTokenGenerator("test-secret", "tokensvc", "tokensvc-clients", WithClock(clock))

	t.Run("RoundTrip", func(t *testing.T) {
		tokenStr, exp, err := g.GenerateToken("user-1", "jti-1", AccessTokenUse, 5*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, now.Add(5*time.Minute), exp)

		claims, err := g.ParseToken(tokenStr)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, "jti-1", claims.ID)
		assert.Equal(t, AccessTokenUse, claims.TokenUse)
		assert.Equal(t, "tokensvc", claims.Issuer)
	})

	t.Run("Expired", func(t *testing.T) {
		tokenStr, _, err := g.GenerateToken("user-1", "jti-2", AccessTokenUse, time.Minute)
		require.NoError(t, err)

		later := NewJwtTokenGenerator("test-secret", "tokensvc", "tokensvc-clients",
			WithClock(func() time.Time { return now.Add(2 * time.Minute) }))
		_, err = later.ParseToken(tokenStr)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		tokenStr, _, err := g.GenerateToken("user-1", "jti-3", AccessTokenUse, time.Minute)
		require.NoError(t, err)

		other := NewJwtTokenGenerator("other-secret", "tokensvc", "tokensvc-clients", WithClock(clock))
		_, err = other.ParseToken(tokenStr)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("WrongAudience", func(t *testing.T) {
		tokenStr, _, err := g.GenerateToken("user-1", "jti-4", AccessTokenUse, time.Minute)
		require.NoError(t, err)

		other := NewJwtTokenGenerator("test-secret", "tokensvc", "somebody-else", WithClock(clock))
		_, err = other.ParseToken(tokenStr)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
	})

	t.Run("MissingJTI", func(t *testing.T) {
		tokenStr, _, err := g.GenerateToken("user-1", "", AccessTokenUse, time.Minute)
		require.NoError(t, err)

		_, err = g.ParseToken(tokenStr)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := g.ParseToken("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestJwtService(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewJwtTokenGenerator("test-secret", "tokensvc", "", WithClock(func() time.Time { return now }))
	js := NewJwtService(g, WithAccessTokenExpiry("PT2M"), WithRefreshTokenExpiry("48h"))
	userID := uuid.New()

	t.Run("Expiries", func(t *testing.T) {
		assert.Equal(t, 2*time.Minute, js.AccessTokenExpiry)
		assert.Equal(t, 48*time.Hour, js.RefreshTokenExpiry)
	})

	t.Run("AccessAndRefreshShareJTI", func(t *testing.T) {
		access, accessExp, err := js.GenerateAccessToken(userID, "jti-a")
		require.NoError(t, err)
		refresh, refreshExp, err := js.GenerateRefreshToken(userID, "jti-a")
		require.NoError(t, err)
		assert.True(t, refreshExp.After(accessExp))

		ac, err := js.ParseAccessToken(access)
		require.NoError(t, err)
		rc, err := js.ParseRefreshToken(refresh)
		require.NoError(t, err)
		assert.Equal(t, ac.ID, rc.ID)

		id, err := rc.UserID()
		require.NoError(t, err)
		assert.Equal(t, userID, id)
	})

	t.Run("UseIsEnforced", func(t *testing.T) {
		access, _, err := js.GenerateAccessToken(userID, "jti-b")
		require.NoError(t, err)
		_, err = js.ParseRefreshToken(access)
		assert.True(t, errors.Is(err, ErrWrongTokenUse))

		refresh, _, err := js.GenerateRefreshToken(userID, "jti-b")
		require.NoError(t, err)
		_, err = js.ParseAccessToken(refresh)
		assert.ErrorIs(t, err, ErrWrongTokenUse)
	})
}

func TestParseDurationValue(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    time.Duration
		wantErr bool
	}{
		{name: "time.Duration", input: 5 * time.Minute, want: 5 * time.Minute},
		{name: "go string", input: "1h30m", want: 90 * time.Minute},
		{name: "iso8601 minutes", input: "PT15M", want: 15 * time.Minute},
		{name: "iso8601 days", input: "P7D", want: 7 * 24 * time.Hour},
		{name: "empty string", input: "", want: 0},
		{name: "invalid string", input: "invalid", wantErr: true},
		{name: "invalid type", input: 123, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationValue(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewJwtService_InvalidExpiryKeepsDefault(t *testing.T) {
	js := NewJwtService(NewJwtTokenGenerator("s", "", ""), WithAccessTokenExpiry("bogus"), WithRefreshTokenExpiry(-time.Hour))
	assert.Equal(t, DefaultAccessTokenExpiry, js.AccessTokenExpiry)
	assert.Equal(t, DefaultRefreshTokenExpiry, js.RefreshTokenExpiry)
}
