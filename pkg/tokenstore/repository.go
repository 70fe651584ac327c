package tokenstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the data access operations of the token store.
// Implementations return ErrNotFound and ErrDuplicate rather than driver errors.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error

	// Single-use tokens, one table per kind
	CreateOneTimeToken(ctx context.Context, kind TokenKind, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*OneTimeToken, error)
	FindOneTimeTokenByHash(ctx context.Context, kind TokenKind, tokenHash string) (*OneTimeToken, error)
	// DeleteOneTimeToken reports whether a row was removed
	DeleteOneTimeToken(ctx context.Context, kind TokenKind, id uuid.UUID) (bool, error)
	DeleteOneTimeTokensForUser(ctx context.Context, kind TokenKind, userID uuid.UUID) (int64, error)
	// LockOneTimeTokensForUser serializes issuers of kind for the user until the
	// transaction ends. Consumers do not take it.
	LockOneTimeTokensForUser(ctx context.Context, kind TokenKind, userID uuid.UUID) error

	// Sessions
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, jti string, expiresAt time.Time) (*RefreshToken, error)
	FindRefreshTokenByJTI(ctx context.Context, jti string) (*RefreshToken, error)
	// RevokeRefreshToken reports whether the row flipped from live to revoked
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error)
	RevokeAllRefreshTokensForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListActiveRefreshTokens(ctx context.Context, userID uuid.UUID, now time.Time) ([]RefreshToken, error)

	// Retention
	DeleteExpiredOneTimeTokens(ctx context.Context, kind TokenKind, before time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (CleanupResult, error)
}

// TxFunc runs inside a transaction. Returning an error rolls back every write.
type TxFunc func(ctx context.Context, tx Repository) error

// Store is a Repository that can run several operations as one atomic unit.
// Lookups made through the tx Repository lock the rows they return until the
// unit ends, so concurrent consumers of the same token serialize.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn TxFunc) error
}
