package config

import (
	"net/http"
	"time"
)

// JWTConfig holds access and refresh credential settings
type JWTConfig struct {
	Secret             string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer             string `env:"JWT_ISSUER" env-default:"simple-tokens"`
	Audience           string `env:"JWT_AUDIENCE" env-default:"simple-tokens"`
	AccessTokenExpiry  string `env:"ACCESS_TOKEN_EXPIRY" env-default:"5m"`
	RefreshTokenExpiry string `env:"REFRESH_TOKEN_EXPIRY" env-default:"168h"`
	CookieEnabled      bool   `env:"COOKIE_ENABLED" env-default:"true"`
	CookieSecure       bool   `env:"COOKIE_SECURE" env-default:"true"`
}

// ParseAccessTokenExpiry parses the access token expiry duration
func (j JWTConfig) ParseAccessTokenExpiry() (time.Duration, error) {
	return ParseDuration(j.AccessTokenExpiry)
}

// ParseRefreshTokenExpiry parses the refresh token expiry duration
func (j JWTConfig) ParseRefreshTokenExpiry() (time.Duration, error) {
	return ParseDuration(j.RefreshTokenExpiry)
}

// CookieSameSite returns the appropriate SameSite setting based on CookieSecure
func (j JWTConfig) CookieSameSite() http.SameSite {
	if j.CookieSecure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

// Validate checks the signing settings. Production requires a non-default secret.
func (j JWTConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequireMinLength("JWT_SECRET", j.Secret, 16),
		RequireDuration("ACCESS_TOKEN_EXPIRY", j.AccessTokenExpiry),
		RequireDuration("REFRESH_TOKEN_EXPIRY", j.RefreshTokenExpiry),
	)
	if IsProduction() && j.Secret == "very-secure-jwt-secret" {
		errs = append(errs, ValidationError{Field: "JWT_SECRET", Message: "must be changed from the default in production"})
	}
	return errs
}
