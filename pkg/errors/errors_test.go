package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionReplayIsSessionInvalid(t *testing.T) {
	wrapped := fmt.Errorf("rotate: %w", ErrSessionReplay)

	assert.True(t, errors.Is(wrapped, ErrSessionReplay))
	assert.True(t, errors.Is(wrapped, ErrSessionInvalid))
	assert.False(t, errors.Is(ErrSessionInvalid, ErrSessionReplay))
	assert.Equal(t, ErrCodeSessionReplay, GetCode(wrapped))
	assert.True(t, IsCode(wrapped, ErrCodeSessionInvalid))
}

func TestGetCode(t *testing.T) {
	t.Run("Structured", func(t *testing.T) {
		assert.Equal(t, ErrCodeTokenExpired, GetCode(fmt.Errorf("consume: %w", ErrTokenExpired)))
	})

	t.Run("Plain", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("boom")))
	})
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	err := ErrRateLimited.WithDetail("retry_after", "60s")

	assert.Nil(t, ErrRateLimited.Details)
	assert.Equal(t, "60s", err.Details["retry_after"])
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeTokenInvalid:      http.StatusBadRequest,
		ErrCodeTokenExpired:      http.StatusBadRequest,
		ErrCodeSessionInvalid:    http.StatusUnauthorized,
		ErrCodeSessionReplay:     http.StatusUnauthorized,
		ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
		ErrCodeSendFailed:        http.StatusServiceUnavailable,
		ErrCodeInternal:          http.StatusInternalServerError,
		ErrorCode("UNKNOWN"):     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, MapErrorCodeToHTTPStatus(code), code)
	}
}

func TestPublicMessageHidesTokenState(t *testing.T) {
	assert.Equal(t, PublicMessage(ErrCodeTokenInvalid), PublicMessage(ErrCodeTokenExpired))
	assert.Equal(t, PublicMessage(ErrCodeSessionInvalid), PublicMessage(ErrCodeSessionReplay))
}
