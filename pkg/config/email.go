package config

import (
	"time"

	"github.com/tendant/simple-tokens/pkg/notification"
)

// EmailConfig holds SMTP email configuration
type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     uint16 `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
	Timeout  string `env:"EMAIL_TIMEOUT" env-default:"10s"`
}

// ToSMTPConfig converts the config to a notification.SMTPConfig
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	timeout, err := ParseDuration(e.Timeout)
	if err != nil {
		timeout = 10 * time.Second
	}
	return notification.SMTPConfig{
		Host:     e.Host,
		Port:     int(e.Port),
		Username: e.Username,
		Password: e.Password,
		From:     e.From,
		TLS:      e.TLS,
		Timeout:  timeout,
	}
}

// Validate checks the SMTP settings
func (e EmailConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireNonEmpty("EMAIL_HOST", e.Host),
		RequireValidPort("EMAIL_PORT", e.Port),
		RequireNonEmpty("EMAIL_FROM", e.From),
		RequireDuration("EMAIL_TIMEOUT", e.Timeout),
		WhenSet(e.Username, func() *ValidationError {
			return RequireNonEmpty("EMAIL_PASSWORD", e.Password)
		}),
	)
}
