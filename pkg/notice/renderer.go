// Package notice renders the emails that carry verification and reset links.
package notice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/simple-tokens/pkg/notification"
)

// NoticeType names a rendered email
type NoticeType string

const (
	EmailVerificationNotice NoticeType = "email_verification"
	PasswordResetNotice     NoticeType = "password_reset"
)

var subjects = map[NoticeType]string{
	EmailVerificationNotice: "Verify your email address",
	PasswordResetNotice:     "Password Reset Request",
}

//go:embed templates/email/*.html
var templateFiles embed.FS

// Config holds the frontend link settings
type Config struct {
	FrontendBaseURL   string
	VerifyEmailPath   string
	ResetPasswordPath string
}

// Data is passed to a template
type Data struct {
	Name   string
	Link   string
	Expiry string
}

// Renderer builds Messages from embedded templates
type Renderer struct {
	config    Config
	templates map[NoticeType]*template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer(config Config) (*Renderer, error) {
	if config.VerifyEmailPath == "" {
		config.VerifyEmailPath = "/verify-email"
	}
	if config.ResetPasswordPath == "" {
		config.ResetPasswordPath = "/reset-password"
	}

	r := &Renderer{config: config, templates: make(map[NoticeType]*template.Template)}
	for noticeType := range subjects {
		name := "templates/email/" + string(noticeType) + ".html"
		tmpl, err := template.ParseFS(templateFiles, name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[noticeType] = tmpl
	}
	return r, nil
}

// Link returns <frontend-base>/<path>?token=<raw>
func (r *Renderer) Link(noticeType NoticeType, raw string) string {
	path := r.config.VerifyEmailPath
	if noticeType == PasswordResetNotice {
		path = r.config.ResetPasswordPath
	}
	base := strings.TrimRight(r.config.FrontendBaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path + "?token=" + url.QueryEscape(raw)
}

// Render builds the message for recipient with a link carrying raw
func (r *Renderer) Render(noticeType NoticeType, to, name, raw string, ttl time.Duration) (notification.Message, error) {
	tmpl, ok := r.templates[noticeType]
	if !ok {
		return notification.Message{}, fmt.Errorf("unknown notice type: %s", noticeType)
	}

	var buf bytes.Buffer
	data := Data{Name: name, Link: r.Link(noticeType, raw), Expiry: formatExpiry(ttl)}
	if err := tmpl.Execute(&buf, data); err != nil {
		return notification.Message{}, fmt.Errorf("failed to render %s: %w", noticeType, err)
	}

	return notification.Message{
		To:      to,
		Subject: subjects[noticeType],
		HTML:    buf.String(),
	}, nil
}

func formatExpiry(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
