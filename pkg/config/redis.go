package config

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the optional Redis connection used for shared rate limits.
// An empty Addr keeps limits in process memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Prefix   string `env:"REDIS_PREFIX" env-default:"simple-tokens:"`
}

// Enabled reports whether a Redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Validate checks the Redis settings when an address is configured
func (r RedisConfig) Validate() ValidationErrors {
	return CollectErrors(
		WhenSet(r.Addr, func() *ValidationError {
			return RequireNonEmpty("REDIS_PREFIX", r.Prefix)
		}),
		WhenSet(r.Addr, func() *ValidationError {
			if r.DB < 0 {
				return &ValidationError{Field: "REDIS_DB", Message: fmt.Sprintf("must be non-negative, got %d", r.DB)}
			}
			return nil
		}),
	)
}

// ToOptions converts the config to go-redis options
func (r RedisConfig) ToOptions() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}
