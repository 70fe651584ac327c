package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// oneTimeTables maps each kind to its table. Table names never come from input.
var oneTimeTables = map[TokenKind]string{
	KindEmailVerification: "email_verification_tokens",
	KindPasswordReset:     "password_reset_tokens",
}

func tableFor(kind TokenKind) (string, error) {
	table, ok := oneTimeTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return table, nil
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	*postgresRepository
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL token store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		postgresRepository: &postgresRepository{db: pool},
		pool:               pool,
	}
}

// WithinTx runs fn in a READ COMMITTED transaction. Token and session lookups
// made through tx use SELECT ... FOR UPDATE, so a second consumer of the same
// row blocks until the first commits and then observes its outcome.
func (s *PostgresStore) WithinTx(ctx context.Context, fn TxFunc) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &postgresRepository{db: tx, lockRows: true})
	})
}

type postgresRepository struct {
	db       dbtx
	lockRows bool
}

func (r *postgresRepository) forUpdate() string {
	if r.lockRows {
		return " FOR UPDATE"
	}
	return ""
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

const userColumns = `id, email, password_hash, email_verified, email_verified_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.EmailVerified,
		&u.EmailVerifiedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &u, nil
}

// CreateUser creates a new user
func (r *postgresRepository) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	query := `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, email, passwordHash))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by ID
func (r *postgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// MarkEmailVerified sets email_verified. The first verification time is kept.
func (r *postgresRepository) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET email_verified = TRUE,
		    email_verified_at = COALESCE(email_verified_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordHash replaces the user's password hash
func (r *postgresRepository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOneTimeToken(kind TokenKind, row pgx.Row) (*OneTimeToken, error) {
	t := OneTimeToken{Kind: kind}
	err := row.Scan(
		&t.ID,
		&t.TokenHash,
		&t.UserID,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &t, nil
}

// CreateOneTimeToken stores the hash of a new single-use token
func (r *postgresRepository) CreateOneTimeToken(ctx context.Context, kind TokenKind, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*OneTimeToken, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, token_hash, user_id, expires_at, created_at
	`, table)

	t, err := scanOneTimeToken(kind, r.db.QueryRow(ctx, query, tokenHash, userID, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s token: %w", kind, err)
	}
	return t, nil
}

// FindOneTimeTokenByHash looks up a token by its at-rest hash
func (r *postgresRepository) FindOneTimeTokenByHash(ctx context.Context, kind TokenKind, tokenHash string) (*OneTimeToken, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, token_hash, user_id, expires_at, created_at
		FROM %s
		WHERE token_hash = $1%s
	`, table, r.forUpdate())

	return scanOneTimeToken(kind, r.db.QueryRow(ctx, query, tokenHash))
}

// DeleteOneTimeToken hard deletes a token by ID
func (r *postgresRepository) DeleteOneTimeToken(ctx context.Context, kind TokenKind, id uuid.UUID) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s token: %w", kind, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteOneTimeTokensForUser removes every token of a kind owned by the user
func (r *postgresRepository) DeleteOneTimeTokensForUser(ctx context.Context, kind TokenKind, userID uuid.UUID) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, table), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s tokens: %w", kind, err)
	}
	return tag.RowsAffected(), nil
}

// LockOneTimeTokensForUser takes a transaction-scoped advisory lock on
// (kind, user). Row locks cannot cover an insert the other issuer has not
// committed yet, so issuance is serialized on this key instead.
func (r *postgresRepository) LockOneTimeTokensForUser(ctx context.Context, kind TokenKind, userID uuid.UUID) error {
	if _, err := tableFor(kind); err != nil {
		return err
	}
	key := string(kind) + ":" + userID.String()
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("failed to lock %s tokens: %w", kind, err)
	}
	return nil
}

const refreshColumns = `id, jti, user_id, expires_at, revoked, created_at, updated_at`

func scanRefreshToken(row pgx.Row) (*RefreshToken, error) {
	var t RefreshToken
	err := row.Scan(
		&t.ID,
		&t.JTI,
		&t.UserID,
		&t.ExpiresAt,
		&t.Revoked,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &t, nil
}

// CreateRefreshToken creates a live session row
func (r *postgresRepository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, jti string, expiresAt time.Time) (*RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING ` + refreshColumns

	t, err := scanRefreshToken(r.db.QueryRow(ctx, query, jti, userID, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return t, nil
}

// FindRefreshTokenByJTI retrieves a session by JTI, revoked or not
func (r *postgresRepository) FindRefreshTokenByJTI(ctx context.Context, jti string) (*RefreshToken, error) {
	query := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE jti = $1` + r.forUpdate()
	return scanRefreshToken(r.db.QueryRow(ctx, query, jti))
}

// RevokeRefreshToken revokes a live session
func (r *postgresRepository) RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    updated_at = NOW()
		WHERE id = $1
		  AND revoked = FALSE
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAllRefreshTokensForUser revokes every unrevoked session of the user
func (r *postgresRepository) RevokeAllRefreshTokensForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    updated_at = NOW()
		WHERE user_id = $1
		  AND revoked = FALSE
	`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListActiveRefreshTokens lists live sessions, newest first
func (r *postgresRepository) ListActiveRefreshTokens(ctx context.Context, userID uuid.UUID, now time.Time) ([]RefreshToken, error) {
	query := `
		SELECT ` + refreshColumns + `
		FROM refresh_tokens
		WHERE user_id = $1
		  AND revoked = FALSE
		  AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *t)
	}
	return sessions, rows.Err()
}

// DeleteExpiredOneTimeTokens removes tokens of one kind that expired before the cutoff
func (r *postgresRepository) DeleteExpiredOneTimeTokens(ctx context.Context, kind TokenKind, before time.Time) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE expires_at < $1`, table), before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired %s tokens: %w", kind, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes rows that expired before the cutoff. Revoked sessions
// are kept until they expire so a late replay is still recognized.
func (r *postgresRepository) DeleteExpired(ctx context.Context, before time.Time) (CleanupResult, error) {
	var (
		result CleanupResult
		err    error
	)

	result.EmailVerificationTokens, err = r.DeleteExpiredOneTimeTokens(ctx, KindEmailVerification, before)
	if err != nil {
		return result, err
	}
	result.PasswordResetTokens, err = r.DeleteExpiredOneTimeTokens(ctx, KindPasswordReset, before)
	if err != nil {
		return result, err
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return result, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	result.RefreshTokens = tag.RowsAffected()

	return result, nil
}
