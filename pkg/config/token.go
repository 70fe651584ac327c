package config

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/tendant/simple-tokens/pkg/notice"
	"github.com/tendant/simple-tokens/pkg/onetimetoken"
)

// TokenConfig holds single-use token lifetimes and the links they are sent in
type TokenConfig struct {
	VerificationTTL   string `env:"VERIFICATION_TOKEN_TTL" env-default:"24h"`
	ResetTTL          string `env:"RESET_TOKEN_TTL" env-default:"15m"`
	FrontendBaseURL   string `env:"FRONTEND_BASE_URL" env-default:"http://localhost:3000"`
	VerifyEmailPath   string `env:"VERIFY_EMAIL_PATH" env-default:"/verify-email"`
	ResetPasswordPath string `env:"RESET_PASSWORD_PATH" env-default:"/reset-password"`
}

// VerificationTokenTTL returns the email verification lifetime
func (t TokenConfig) VerificationTokenTTL() time.Duration {
	d, err := ParseDuration(t.VerificationTTL)
	if err != nil || d <= 0 {
		return onetimetoken.DefaultEmailVerificationTTL
	}
	return d
}

// ResetTokenTTL returns the password reset lifetime
func (t TokenConfig) ResetTokenTTL() time.Duration {
	d, err := ParseDuration(t.ResetTTL)
	if err != nil || d <= 0 {
		return onetimetoken.DefaultPasswordResetTTL
	}
	return d
}

// ToNoticeConfig copies the link settings for the notice renderer
func (t TokenConfig) ToNoticeConfig() (notice.Config, error) {
	var c notice.Config
	if err := copier.Copy(&c, &t); err != nil {
		return notice.Config{}, fmt.Errorf("failed to copy notice config: %w", err)
	}
	return c, nil
}

// Validate checks lifetimes and the frontend URL
func (t TokenConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireDuration("VERIFICATION_TOKEN_TTL", t.VerificationTTL),
		RequireDuration("RESET_TOKEN_TTL", t.ResetTTL),
		RequireValidURL("FRONTEND_BASE_URL", t.FrontendBaseURL),
	)
}
