package config

import (
	"testing"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "ISO8601", input: "PT15M", want: 15 * time.Minute},
		{name: "ISO8601Days", input: "P7D", want: 7 * 24 * time.Hour},
		{name: "GoSyntax", input: "24h", want: 24 * time.Hour},
		{name: "Invalid", input: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	assert.Equal(t, Production, GetEnvironment())
	assert.True(t, IsProduction())

	t.Setenv("APP_ENV", "")
	assert.Equal(t, Development, GetEnvironment())
	assert.False(t, IsProduction())
}

func TestSectionsReadDefaults(t *testing.T) {
	var cfg struct {
		Database  DatabaseConfig
		Email     EmailConfig
		JWT       JWTConfig
		Token     TokenConfig
		Password  PasswordConfig
		RateLimit RateLimitConfig
		Redis     RedisConfig
		Cleanup   CleanupConfig
	}
	require.NoError(t, cleanenv.ReadEnv(&cfg))

	err := Validate(
		cfg.Database.Validate,
		cfg.Email.Validate,
		cfg.JWT.Validate,
		cfg.Token.Validate,
		cfg.Password.Validate,
		cfg.RateLimit.Validate,
		cfg.Redis.Validate,
		cfg.Cleanup.Validate,
	)
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Token.VerificationTokenTTL())
	assert.Equal(t, 15*time.Minute, cfg.Token.ResetTokenTTL())

	noticeConfig, err := cfg.Token.ToNoticeConfig()
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", noticeConfig.ResetPasswordPath)
	assert.Equal(t, "/verify-email", noticeConfig.VerifyEmailPath)
	assert.Equal(t, "http://localhost:3000", noticeConfig.FrontendBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Email.ToSMTPConfig().Timeout)
	assert.False(t, cfg.Redis.Enabled())

	refresh, err := cfg.JWT.ParseRefreshTokenExpiry()
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, refresh)
}

func TestValidate_CollectsEveryError(t *testing.T) {
	token := TokenConfig{VerificationTTL: "never", ResetTTL: "-5m", FrontendBaseURL: "localhost"}
	jwt := JWTConfig{Secret: "short", AccessTokenExpiry: "5m", RefreshTokenExpiry: "168h"}

	err := Validate(token.Validate, jwt.Validate)
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"VERIFICATION_TOKEN_TTL", "RESET_TOKEN_TTL", "FRONTEND_BASE_URL", "JWT_SECRET"}, fields)
}

func TestOptionalSections(t *testing.T) {
	t.Run("CleanupRetentionMayBeZero", func(t *testing.T) {
		c := CleanupConfig{Enabled: true, Interval: "1h", Retention: "0s"}
		assert.Empty(t, c.Validate())
	})

	t.Run("CleanupRetentionNegative", func(t *testing.T) {
		c := CleanupConfig{Enabled: true, Interval: "1h", Retention: "-1h"}
		errs := c.Validate()
		require.Len(t, errs, 1)
		assert.Equal(t, "CLEANUP_RETENTION", errs[0].Field)
	})

	t.Run("EmailUsernameRequiresPassword", func(t *testing.T) {
		e := EmailConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com", Timeout: "10s", Username: "mailer"}
		errs := e.Validate()
		require.Len(t, errs, 1)
		assert.Equal(t, "EMAIL_PASSWORD", errs[0].Field)

		e.Password = "pw"
		assert.Empty(t, e.Validate())
	})

	t.Run("RedisCheckedOnlyWhenAddressSet", func(t *testing.T) {
		r := RedisConfig{DB: -1}
		assert.Empty(t, r.Validate())

		r.Addr = "localhost:6379"
		errs := r.Validate()
		require.Len(t, errs, 2)
		assert.Equal(t, "REDIS_PREFIX", errs[0].Field)
		assert.Equal(t, "REDIS_DB", errs[1].Field)
	})
}
