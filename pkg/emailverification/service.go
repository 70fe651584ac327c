package emailverification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-tokens/pkg/notice"
	"github.com/tendant/simple-tokens/pkg/notification"
	"github.com/tendant/simple-tokens/pkg/onetimetoken"
	"github.com/tendant/simple-tokens/pkg/ratelimit"
	"github.com/tendant/simple-tokens/pkg/tokenstore"
)

// Status is a user's email verification state
type Status struct {
	Verified   bool
	VerifiedAt *time.Time
}

// EmailVerificationService handles email verification operations
type EmailVerificationService struct {
	store    tokenstore.Store
	tokens   *onetimetoken.Manager
	renderer *notice.Renderer
	notifier notification.Notifier
	limiter  ratelimit.Limiter
	now      func() time.Time

	tokenExpiry time.Duration
}

// EmailVerificationServiceOption defines configuration options
type EmailVerificationServiceOption func(*EmailVerificationService)

// WithTokenExpiry sets the token expiration duration
func WithTokenExpiry(expiry time.Duration) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.tokenExpiry = expiry
	}
}

// WithLimiter throttles issuance per user
func WithLimiter(limiter ratelimit.Limiter) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.limiter = limiter
	}
}

// WithClock sets the clock used for token expiry
func WithClock(now func() time.Time) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.now = now
	}
}

// NewEmailVerificationService creates a new email verification service.
// A nil notifier disables sending; tokens are still issued.
func NewEmailVerificationService(
	store tokenstore.Store,
	renderer *notice.Renderer,
	notifier notification.Notifier,
	opts ...EmailVerificationServiceOption,
) *EmailVerificationService {
	service := &EmailVerificationService{
		store:       store,
		renderer:    renderer,
		notifier:    notifier,
		limiter:     ratelimit.Noop{},
		now:         time.Now,
		tokenExpiry: onetimetoken.DefaultEmailVerificationTTL,
	}

	for _, opt := range opts {
		opt(service)
	}

	service.tokens = onetimetoken.NewManager(store, tokenstore.KindEmailVerification,
		onetimetoken.WithTTL(service.tokenExpiry),
		onetimetoken.WithClock(service.now),
	)
	return service
}

// IssueEmailVerification replaces any outstanding verification token for the
// user and emails a link carrying the new one. The raw secret is returned for
// callers that deliver it another way. A failed send is logged and does not
// fail the call: the token stays valid for a later resend.
func (s *EmailVerificationService) IssueEmailVerification(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := s.limiter.Allow(ctx, "verify:"+userID.String()); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			slog.Warn("Rate limit exceeded", "user_id", userID)
			return "", ErrRateLimitExceeded
		}
		return "", fmt.Errorf("failed to check rate limit: %w", err)
	}

	raw, token, err := s.tokens.Issue(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := s.sendVerificationEmail(ctx, user.Email, raw); err != nil {
		slog.Error("Failed to send verification email", "user_id", userID, "token_id", token.ID, "error", err)
	}

	slog.Info("Verification token created", "user_id", userID, "token_id", token.ID, "expires_at", token.ExpiresAt)
	return raw, nil
}

// ConsumeEmailVerification verifies the user's email with a raw token. The flag
// and the token deletion commit together or not at all.
func (s *EmailVerificationService) ConsumeEmailVerification(ctx context.Context, raw string) (uuid.UUID, error) {
	token, err := s.tokens.Consume(ctx, raw, func(ctx context.Context, tx tokenstore.Repository, token *tokenstore.OneTimeToken) error {
		return tx.MarkEmailVerified(ctx, token.UserID)
	})
	if err != nil {
		return uuid.Nil, err
	}

	slog.Info("Email verified successfully", "user_id", token.UserID, "token_id", token.ID)
	return token.UserID, nil
}

// ResendVerification issues a fresh token unless the address is already verified
func (s *EmailVerificationService) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.EmailVerified {
		slog.Info("Email already verified", "user_id", userID)
		return ErrAlreadyVerified
	}

	_, err = s.IssueEmailVerification(ctx, userID)
	return err
}

// GetVerificationStatus returns the email verification status for a user
func (s *EmailVerificationService) GetVerificationStatus(ctx context.Context, userID uuid.UUID) (Status, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{Verified: user.EmailVerified, VerifiedAt: user.EmailVerifiedAt}, nil
}

// CleanupExpiredTokens deletes verification tokens already past their expiry.
// Other token kinds are left to tokenstore.Sweeper and its retention.
func (s *EmailVerificationService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredOneTimeTokens(ctx, tokenstore.KindEmailVerification, s.now().UTC())
	if err != nil {
		slog.Error("Failed to cleanup expired tokens", "error", err)
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	slog.Info("Expired tokens cleaned up successfully", "email_verification", n)
	return n, nil
}

func (s *EmailVerificationService) getUser(ctx context.Context, userID uuid.UUID) (*tokenstore.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		slog.Error("Failed to get user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *EmailVerificationService) sendVerificationEmail(ctx context.Context, email, raw string) error {
	if s.notifier == nil {
		slog.Warn("Notifier not configured, skipping email send")
		return nil
	}

	msg, err := s.renderer.Render(notice.EmailVerificationNotice, email, "", raw, s.tokenExpiry)
	if err != nil {
		return err
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
