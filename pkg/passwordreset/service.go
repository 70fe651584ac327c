// Package passwordreset issues and redeems password reset links.
package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-tokens/pkg/errors"
	"github.com/tendant/simple-tokens/pkg/notice"
	"github.com/tendant/simple-tokens/pkg/notification"
	"github.com/tendant/simple-tokens/pkg/onetimetoken"
	"github.com/tendant/simple-tokens/pkg/password"
	"github.com/tendant/simple-tokens/pkg/ratelimit"
	"github.com/tendant/simple-tokens/pkg/tokenstore"
)

// Service handles password reset operations
type Service struct {
	store     tokenstore.Store
	tokens    *onetimetoken.Manager
	renderer  *notice.Renderer
	notifier  notification.Notifier
	hasher    password.Hasher
	limiter   ratelimit.Limiter
	now       func() time.Time
	ttl       time.Duration
	minLength int
}

// Option configures a Service
type Option func(*Service)

// WithTokenExpiry sets the reset token lifetime
func WithTokenExpiry(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithHasher sets the hasher for new passwords
func WithHasher(hasher password.Hasher) Option {
	return func(s *Service) {
		s.hasher = hasher
	}
}

// WithLimiter throttles reset requests per email address
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(s *Service) {
		s.limiter = limiter
	}
}

// WithMinPasswordLength sets the shortest accepted new password
func WithMinPasswordLength(n int) Option {
	return func(s *Service) {
		s.minLength = n
	}
}

// WithClock sets the clock used for token expiry
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new password reset service
func NewService(store tokenstore.Store, renderer *notice.Renderer, notifier notification.Notifier, opts ...Option) *Service {
	s := &Service{
		store:     store,
		renderer:  renderer,
		notifier:  notifier,
		hasher:    password.NewBcryptHasher(),
		limiter:   ratelimit.Noop{},
		now:       time.Now,
		ttl:       onetimetoken.DefaultPasswordResetTTL,
		minLength: password.DefaultMinLength,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tokens = onetimetoken.NewManager(store, tokenstore.KindPasswordReset,
		onetimetoken.WithTTL(s.ttl),
		onetimetoken.WithClock(s.now),
	)
	return s
}

// IssuePasswordReset emails a reset link to the account registered under
// email. An unknown address returns nil without sending anything, so callers
// cannot probe which addresses have accounts. A failed send returns
// ErrSendFailed.
func (s *Service) IssuePasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.InvalidInput("email", "required")
	}

	if err := s.limiter.Allow(ctx, "reset:"+strings.ToLower(email)); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			slog.Warn("Password reset rate limit exceeded")
			return ErrRateLimitExceeded
		}
		return fmt.Errorf("failed to check rate limit: %w", err)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, tokenstore.ErrNotFound) {
		slog.Info("Password reset requested for unknown account")
		return nil
	}
	if err != nil {
		slog.Error("Failed to get user by email", "error", err)
		return fmt.Errorf("failed to get user: %w", err)
	}

	raw, token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	slog.Info("Password reset token created", "user_id", user.ID, "token_id", token.ID, "expires_at", token.ExpiresAt)

	if err := s.send(ctx, user.Email, raw); err != nil {
		slog.Error("Failed to send password reset email", "user_id", user.ID, "token_id", token.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// ConsumePasswordReset sets a new password using a raw reset token. The new
// hash, the token deletion and the revocation of every session of the user
// commit together or not at all. The token is checked before the password so
// an expired token is removed even when the new password is rejected.
func (s *Service) ConsumePasswordReset(ctx context.Context, raw, newPassword string) (uuid.UUID, error) {
	state, _, err := s.tokens.Lookup(ctx, raw)
	if err != nil {
		return uuid.Nil, err
	}
	switch state {
	case onetimetoken.StateExpired:
		slog.Warn("Password reset token expired")
		return uuid.Nil, ErrTokenExpired
	case onetimetoken.StateAbsent:
		slog.Warn("Password reset token not found")
		return uuid.Nil, ErrInvalidToken
	}

	if err := password.Validate(newPassword, s.minLength); err != nil {
		return uuid.Nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, err.Error())
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var revoked int64
	token, err := s.tokens.Consume(ctx, raw, func(ctx context.Context, tx tokenstore.Repository, token *tokenstore.OneTimeToken) error {
		if err := tx.UpdatePasswordHash(ctx, token.UserID, hash); err != nil {
			return err
		}
		revoked, err = tx.RevokeAllRefreshTokensForUser(ctx, token.UserID)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}

	slog.Info("Password reset successfully", "user_id", token.UserID, "token_id", token.ID, "sessions_revoked", revoked)
	return token.UserID, nil
}

// ValidateResetToken checks a reset link before the new password form is
// shown. It does not consume the token. An expired token is removed and
// reported as ErrTokenExpired.
func (s *Service) ValidateResetToken(ctx context.Context, raw string) (time.Time, error) {
	state, token, err := s.tokens.Lookup(ctx, raw)
	if err != nil {
		return time.Time{}, err
	}
	switch state {
	case onetimetoken.StateLive:
		return token.ExpiresAt, nil
	case onetimetoken.StateExpired:
		return time.Time{}, ErrTokenExpired
	default:
		return time.Time{}, ErrInvalidToken
	}
}

func (s *Service) send(ctx context.Context, email, raw string) error {
	if s.notifier == nil {
		return errors.New("notifier not configured")
	}
	msg, err := s.renderer.Render(notice.PasswordResetNotice, email, "", raw, s.ttl)
	if err != nil {
		return err
	}
	return s.notifier.Send(ctx, msg)
}
