package config

import "time"

// RateLimitConfig holds issuance throttling and per-IP endpoint limits
type RateLimitConfig struct {
	Enabled bool `env:"RATELIMIT_ENABLED" env-default:"true"`

	// Issuance: verification and reset emails per user or address
	IssuanceLimit  int    `env:"ISSUANCE_LIMIT" env-default:"3"`
	IssuanceWindow string `env:"ISSUANCE_WINDOW" env-default:"1h"`

	// Endpoint: requests per client IP on the public token endpoints
	EndpointLimit  int    `env:"ENDPOINT_LIMIT" env-default:"30"`
	EndpointWindow string `env:"ENDPOINT_WINDOW" env-default:"1m"`
}

// IssuanceWindowDuration returns the issuance window, one hour if unparseable
func (r RateLimitConfig) IssuanceWindowDuration() time.Duration {
	d, err := ParseDuration(r.IssuanceWindow)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// EndpointWindowDuration returns the endpoint window, one minute if unparseable
func (r RateLimitConfig) EndpointWindowDuration() time.Duration {
	d, err := ParseDuration(r.EndpointWindow)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// Validate checks the limits when throttling is enabled
func (r RateLimitConfig) Validate() ValidationErrors {
	if !r.Enabled {
		return nil
	}
	return CollectErrors(
		RequirePositive("ISSUANCE_LIMIT", r.IssuanceLimit),
		RequireDuration("ISSUANCE_WINDOW", r.IssuanceWindow),
		RequirePositive("ENDPOINT_LIMIT", r.EndpointLimit),
		RequireDuration("ENDPOINT_WINDOW", r.EndpointWindow),
	)
}
