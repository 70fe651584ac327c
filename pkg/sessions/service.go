package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-tokens/pkg/errors"
	"github.com/tendant/simple-tokens/pkg/password"
	"github.com/tendant/simple-tokens/pkg/secret"
	"github.com/tendant/simple-tokens/pkg/tokengenerator"
	"github.com/tendant/simple-tokens/pkg/tokenstore"
)

var (
	// ErrSessionInvalid covers unknown, expired, revoked and malformed credentials
	ErrSessionInvalid = apperrors.ErrSessionInvalid

	// ErrSessionReplay is a retired refresh credential presented again.
	// It matches ErrSessionInvalid under errors.Is.
	ErrSessionReplay = apperrors.ErrSessionReplay

	// ErrInvalidCredentials is returned by Login
	ErrInvalidCredentials = apperrors.ErrInvalidCredentials
)

// Service issues, rotates and revokes sessions
type Service struct {
	store tokenstore.Store
	jwt   *tokengenerator.JwtService
	now   func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithClock sets the clock used for row expiry checks
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new session service
func NewService(store tokenstore.Store, jwtService *tokengenerator.JwtService, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		jwt:   jwtService,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueSession starts a new session for the user
func (s *Service) IssueSession(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	var pair *TokenPair
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx tokenstore.Repository) error {
		var err error
		pair, err = s.mint(ctx, tx, userID)
		return err
	})
	if err != nil {
		slog.Error("Failed to issue session", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	slog.Info("Session issued", "user_id", userID, "jti", pair.JTI)
	return pair, nil
}

// Login checks the password and starts a session. Unknown email and wrong
// password return the same error.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, tokenstore.ErrNotFound) {
		slog.Info("Login failed", "reason", "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.PasswordHash == "" || plaintext == "" {
		slog.Info("Login failed", "user_id", user.ID, "reason", "no password")
		return nil, ErrInvalidCredentials
	}
	ok, err := password.Verify(plaintext, user.PasswordHash)
	if err != nil {
		slog.Error("Failed to verify password", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		slog.Info("Login failed", "user_id", user.ID, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	return s.IssueSession(ctx, user.ID)
}

// RotateSession retires the presented refresh credential and issues its
// successor. A credential that was already retired is a replay: every live
// session of the user is revoked and ErrSessionReplay is returned.
func (s *Service) RotateSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		slog.Warn("Refresh credential rejected", "error", err)
		return nil, ErrSessionInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		slog.Warn("Refresh credential has invalid subject", "jti", claims.ID)
		return nil, ErrSessionInvalid
	}

	var (
		pair    *TokenPair
		replay  bool
		revoked int64
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx tokenstore.Repository) error {
		row, err := tx.FindRefreshTokenByJTI(ctx, claims.ID)
		if errors.Is(err, tokenstore.ErrNotFound) {
			return ErrSessionInvalid
		}
		if err != nil {
			return err
		}
		if row.UserID != userID {
			return ErrSessionInvalid
		}

		if !row.Revoked {
			if !s.now().Before(row.ExpiresAt) {
				return ErrSessionInvalid
			}
			flipped, err := tx.RevokeRefreshToken(ctx, row.ID)
			if err != nil {
				return err
			}
			if flipped {
				pair, err = s.mint(ctx, tx, userID)
				return err
			}
		}

		// Retired credential presented again. The cascade commits; the
		// caller still gets an error.
		replay = true
		revoked, err = tx.RevokeAllRefreshTokensForUser(ctx, row.UserID)
		return err
	})

	switch {
	case errors.Is(err, ErrSessionInvalid):
		slog.Warn("Session invalid", "jti", claims.ID, "user_id", userID)
		return nil, ErrSessionInvalid
	case err != nil:
		slog.Error("Failed to rotate session", "jti", claims.ID, "error", err)
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	case replay:
		slog.Warn("Refresh credential replay detected, revoked all sessions",
			"jti", claims.ID, "user_id", userID, "revoked", revoked)
		return nil, ErrSessionReplay
	}

	slog.Info("Session rotated", "user_id", userID, "old_jti", claims.ID, "new_jti", pair.JTI)
	return pair, nil
}

// Logout revokes the session of the presented refresh credential. Logging out
// an already revoked or unknown session succeeds.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		slog.Warn("Logout with unparseable refresh credential", "error", err)
		return ErrSessionInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return ErrSessionInvalid
	}

	row, err := s.store.FindRefreshTokenByJTI(ctx, claims.ID)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}
	if row.UserID != userID {
		return ErrSessionInvalid
	}

	flipped, err := s.store.RevokeRefreshToken(ctx, row.ID)
	if err != nil {
		slog.Error("Failed to revoke session", "jti", claims.ID, "error", err)
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if flipped {
		slog.Info("Session logged out", "user_id", userID, "jti", claims.ID)
	}
	return nil
}

// ValidateAccess verifies an access credential and checks that its session is
// still live.
func (s *Service) ValidateAccess(ctx context.Context, accessToken string) (*tokengenerator.Claims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if err := s.CheckSession(ctx, claims.ID, userID); err != nil {
		return nil, err
	}
	return claims, nil
}

// CheckSession returns nil when jti names a live session owned by userID
func (s *Service) CheckSession(ctx context.Context, jti string, userID uuid.UUID) error {
	row, err := s.store.FindRefreshTokenByJTI(ctx, jti)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return ErrSessionInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}
	if row.UserID != userID || !row.Live(s.now()) {
		return ErrSessionInvalid
	}
	return nil
}

// RevokeAllSessions revokes every live session of the user
func (s *Service) RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.store.RevokeAllRefreshTokensForUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to revoke sessions", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	slog.Info("Revoked all sessions", "user_id", userID, "count", n)
	return n, nil
}

// ListActiveSessions lists the user's live sessions, marking currentJTI
func (s *Service) ListActiveSessions(ctx context.Context, userID uuid.UUID, currentJTI string) (*SessionListResponse, error) {
	rows, err := s.store.ListActiveRefreshTokens(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]SessionSummary, len(rows))
	for i, row := range rows {
		summaries[i] = SessionSummary{
			ID:               row.ID,
			JTI:              row.JTI,
			CreatedAt:        row.CreatedAt,
			ExpiresAt:        row.ExpiresAt,
			IsCurrentSession: row.JTI == currentJTI,
		}
	}

	return &SessionListResponse{
		Sessions:   summaries,
		Total:      len(summaries),
		CurrentJTI: currentJTI,
	}, nil
}

// mint signs a new credential pair and stores its session row through tx
func (s *Service) mint(ctx context.Context, tx tokenstore.Repository, userID uuid.UUID) (*TokenPair, error) {
	jti := secret.NewJTI()

	access, accessExp, err := s.jwt.GenerateAccessToken(userID, jti)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.jwt.GenerateRefreshToken(userID, jti)
	if err != nil {
		return nil, err
	}

	if _, err := tx.CreateRefreshToken(ctx, userID, jti, refreshExp); err != nil {
		return nil, err
	}

	return &TokenPair{
		UserID:                userID,
		JTI:                   jti,
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}
