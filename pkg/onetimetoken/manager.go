package onetimetoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-tokens/pkg/errors"
	"github.com/tendant/simple-tokens/pkg/secret"
	"github.com/tendant/simple-tokens/pkg/tokenstore"
)

// Default lifetimes per kind
const (
	DefaultEmailVerificationTTL = 24 * time.Hour
	DefaultPasswordResetTTL     = 15 * time.Minute
)

// State is the lifecycle state of a token as seen by Lookup
type State string

const (
	StateLive    State = "LIVE"
	StateExpired State = "EXPIRED"
	StateAbsent  State = "ABSENT"
)

// ApplyFunc performs the state change a token authorizes. It runs in the same
// transaction that deletes the token; returning an error rolls back both.
type ApplyFunc func(ctx context.Context, tx tokenstore.Repository, token *tokenstore.OneTimeToken) error

// Manager issues and consumes tokens of one kind
type Manager struct {
	store     tokenstore.Store
	kind      tokenstore.TokenKind
	ttl       time.Duration
	now       func() time.Time
	newSecret func() (secret.Secret, error)
}

// Option configures a Manager
type Option func(*Manager)

// WithTTL sets the token lifetime
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithClock sets the clock used for expiry
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithSecretSource replaces the secret generator
func WithSecretSource(fn func() (secret.Secret, error)) Option {
	return func(m *Manager) {
		m.newSecret = fn
	}
}

// NewManager creates a Manager for the given kind
func NewManager(store tokenstore.Store, kind tokenstore.TokenKind, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		kind:      kind,
		ttl:       DefaultEmailVerificationTTL,
		now:       time.Now,
		newSecret: secret.NewOpaqueSecret,
	}
	if kind == tokenstore.KindPasswordReset {
		m.ttl = DefaultPasswordResetTTL
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kind returns the token kind this manager handles
func (m *Manager) Kind() tokenstore.TokenKind {
	return m.kind
}

// TTL returns the configured token lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue deletes the user's existing tokens of this kind and stores a new one.
// Concurrent issues for the same user are serialized so one row survives.
// The raw secret is returned to the caller and is not kept anywhere.
func (m *Manager) Issue(ctx context.Context, userID uuid.UUID) (string, *tokenstore.OneTimeToken, error) {
	expiresAt := m.now().UTC().Add(m.ttl)

	// A hash collision is retried once with a fresh secret.
	for attempt := 1; attempt <= 2; attempt++ {
		sec, err := m.newSecret()
		if err != nil {
			return "", nil, err
		}

		var token *tokenstore.OneTimeToken
		err = m.store.WithinTx(ctx, func(ctx context.Context, tx tokenstore.Repository) error {
			if err := tx.LockOneTimeTokensForUser(ctx, m.kind, userID); err != nil {
				return err
			}
			removed, err := tx.DeleteOneTimeTokensForUser(ctx, m.kind, userID)
			if err != nil {
				return err
			}
			if removed > 0 {
				slog.Debug("Superseded previous tokens", "kind", m.kind, "user_id", userID, "count", removed)
			}
			token, err = tx.CreateOneTimeToken(ctx, m.kind, userID, sec.Hash, expiresAt)
			return err
		})
		if err == nil {
			slog.Info("Token issued", "kind", m.kind, "user_id", userID, "token_id", token.ID, "expires_at", expiresAt)
			return sec.Raw, token, nil
		}
		if !errors.Is(err, tokenstore.ErrDuplicate) {
			slog.Error("Failed to issue token", "kind", m.kind, "user_id", userID, "error", err)
			return "", nil, fmt.Errorf("failed to issue %s token: %w", m.kind, err)
		}
		slog.Warn("Token hash collision", "kind", m.kind, "user_id", userID, "attempt", attempt)
	}

	return "", nil, apperrors.ErrDuplicateIssuance
}

// Consume validates raw and, if the token is live, deletes it and runs apply
// in a single transaction. Possible errors:
//
//	ErrInvalidToken  no such token (never issued, consumed, superseded, or lost a race)
//	ErrTokenExpired  token found past expiry; it is deleted so a retry sees ErrInvalidToken
//
// Any error from apply is returned wrapped and nothing is changed.
func (m *Manager) Consume(ctx context.Context, raw string, apply ApplyFunc) (*tokenstore.OneTimeToken, error) {
	if raw == "" {
		return nil, apperrors.ErrInvalidToken
	}
	hash := secret.Hash(raw)

	var (
		consumed *tokenstore.OneTimeToken
		expired  bool
	)
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx tokenstore.Repository) error {
		token, err := tx.FindOneTimeTokenByHash(ctx, m.kind, hash)
		if errors.Is(err, tokenstore.ErrNotFound) {
			return apperrors.ErrInvalidToken
		}
		if err != nil {
			return err
		}

		deleted, err := tx.DeleteOneTimeToken(ctx, m.kind, token.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperrors.ErrInvalidToken
		}
		consumed = token

		// Commit the delete but skip apply.
		if token.Expired(m.now()) {
			expired = true
			return nil
		}

		if apply != nil {
			if err := apply(ctx, tx, token); err != nil {
				return err
			}
		}
		return nil
	})

	switch {
	case errors.Is(err, apperrors.ErrInvalidToken):
		slog.Warn("Token not found", "kind", m.kind)
		return nil, err
	case err != nil:
		slog.Error("Failed to consume token", "kind", m.kind, "error", err)
		return nil, fmt.Errorf("failed to consume %s token: %w", m.kind, err)
	case expired:
		slog.Warn("Token expired", "kind", m.kind, "token_id", consumed.ID, "user_id", consumed.UserID, "expires_at", consumed.ExpiresAt)
		return nil, apperrors.ErrTokenExpired
	}

	slog.Info("Token consumed", "kind", m.kind, "token_id", consumed.ID, "user_id", consumed.UserID)
	return consumed, nil
}

// Lookup reports the state of the token for raw without consuming it.
// An expired token is deleted when found.
func (m *Manager) Lookup(ctx context.Context, raw string) (State, *tokenstore.OneTimeToken, error) {
	if raw == "" {
		return StateAbsent, nil, nil
	}

	token, err := m.store.FindOneTimeTokenByHash(ctx, m.kind, secret.Hash(raw))
	if errors.Is(err, tokenstore.ErrNotFound) {
		return StateAbsent, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up %s token: %w", m.kind, err)
	}

	if token.Expired(m.now()) {
		if _, err := m.store.DeleteOneTimeToken(ctx, m.kind, token.ID); err != nil {
			slog.Error("Failed to delete expired token", "kind", m.kind, "token_id", token.ID, "error", err)
		}
		return StateExpired, token, nil
	}
	return StateLive, token, nil
}
