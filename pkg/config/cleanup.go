package config

import (
	"fmt"
	"time"
)

// CleanupConfig controls the background sweeper for expired rows
type CleanupConfig struct {
	Enabled   bool   `env:"CLEANUP_ENABLED" env-default:"true"`
	Interval  string `env:"CLEANUP_INTERVAL" env-default:"1h"`
	Retention string `env:"CLEANUP_RETENTION" env-default:"24h"`
}

// IntervalDuration returns the sweep interval
func (c CleanupConfig) IntervalDuration() time.Duration {
	d, err := ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RetentionDuration returns how long expired rows are kept
func (c CleanupConfig) RetentionDuration() time.Duration {
	d, err := ParseDuration(c.Retention)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Validate checks the sweeper settings when enabled
func (c CleanupConfig) Validate() ValidationErrors {
	if !c.Enabled {
		return nil
	}
	return CollectErrors(
		RequireDuration("CLEANUP_INTERVAL", c.Interval),
		requireRetention("CLEANUP_RETENTION", c.Retention),
	)
}

func requireRetention(field, value string) *ValidationError {
	d, err := ParseDuration(value)
	if err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid duration %q", value)}
	}
	return RequireNonNegativeDuration(field, d)
}
