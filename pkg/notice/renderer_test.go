package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer(t *testing.T) {
	r, err := NewRenderer(Config{FrontendBaseURL: "https://app.example.com/"})
	require.NoError(t, err)

	t.Run("Link", func(t *testing.T) {
		assert.Equal(t, "https://app.example.com/verify-email?token=abc_-1", r.Link(EmailVerificationNotice, "abc_-1"))
		assert.Equal(t, "https://app.example.com/reset-password?token=abc", r.Link(PasswordResetNotice, "abc"))
	})

	t.Run("Verification", func(t *testing.T) {
		msg, err := r.Render(EmailVerificationNotice, "user@example.com", "Ada", "raw-secret", 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", msg.To)
		assert.Equal(t, "Verify your email address", msg.Subject)
		assert.Contains(t, msg.HTML, "https://app.example.com/verify-email?token=raw-secret")
		assert.Contains(t, msg.HTML, "Hello Ada,")
		assert.Contains(t, msg.HTML, "24 hours")
	})

	t.Run("Reset", func(t *testing.T) {
		msg, err := r.Render(PasswordResetNotice, "user@example.com", "", "raw-secret", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "Password Reset Request", msg.Subject)
		assert.Contains(t, msg.HTML, "/reset-password?token=raw-secret")
		assert.Contains(t, msg.HTML, "15 minutes")
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := r.Render(NoticeType("welcome"), "user@example.com", "", "x", time.Minute)
		assert.Error(t, err)
	})
}

func TestFormatExpiry(t *testing.T) {
	assert.Equal(t, "1 hour", formatExpiry(time.Hour))
	assert.Equal(t, "90 minutes", formatExpiry(90*time.Minute))
	assert.Equal(t, "30 seconds", formatExpiry(30*time.Second))
}
