// Package config provides the environment-driven configuration of the token service.
//
// Each concern has its own section struct with cleanenv tags, so a service
// composes the sections it needs into one root struct and reads it with
// cleanenv.ReadEnv. Duration values are kept as strings and accept either
// ISO 8601 ("PT15M") or Go syntax ("15m").
//
// # Overview
//
// The config package provides:
//   - Section structs: DatabaseConfig, EmailConfig, JWTConfig, TokenConfig,
//     PasswordConfig, RateLimitConfig, RedisConfig, CleanupConfig
//   - Duration parsing and deployment environment detection
//   - Configuration validation utilities
//
// # Loading
//
//	type Config struct {
//		Database config.DatabaseConfig
//		JWT      config.JWTConfig
//		Token    config.TokenConfig
//	}
//
//	var cfg Config
//	if err := cleanenv.ReadEnv(&cfg); err != nil {
//		return err
//	}
//
// # Validation
//
// Every section has a Validate method returning ValidationErrors. Combine them
// with Validate to report every problem at once:
//
//	err := config.Validate(
//		cfg.Database.Validate,
//		cfg.JWT.Validate,
//		cfg.Token.Validate,
//	)
//	if err != nil {
//		slog.Error("Invalid configuration", "error", err)
//		os.Exit(1)
//	}
//
// # Environment
//
// APP_ENV selects the deployment environment. In production JWTConfig
// refuses the built-in development secret:
//
//	if config.IsProduction() {
//		// stricter checks
//	}
package config
